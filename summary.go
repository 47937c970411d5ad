package overlay

import (
	"fmt"
	"sort"
	"strings"
)

// ModificationDescriptor names one modification for summaries and rejection
// reports.
type ModificationDescriptor struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// OverlaySummary is a compact, human-oriented description of what an overlay
// targets and touches. Authoring tools render it alongside registration
// results so a rejection points at the selector or modification that caused
// it.
type OverlaySummary struct {
	OverlayID     string                   `json:"overlayId"`
	Version       string                   `json:"version"`
	Specificity   int                      `json:"specificity"`
	Priority      int                      `json:"priority"`
	Selector      []Dimension              `json:"selector"`
	Modifications []ModificationDescriptor `json:"modifications"`
	Fields        []string                 `json:"fields"`
}

// Summarize derives the summary for spec. Nil modifications are reported as
// type "<nil>" rather than dropped so positions stay aligned with the
// spec's modification list.
func Summarize(spec OverlaySpec) OverlaySummary {
	summary := OverlaySummary{
		OverlayID:     spec.OverlayID,
		Version:       spec.Version,
		Specificity:   spec.AppliesTo.Specificity(),
		Priority:      spec.Priority,
		Selector:      spec.AppliesTo.Dimensions(),
		Modifications: make([]ModificationDescriptor, 0, len(spec.Modifications)),
	}

	seen := map[string]struct{}{}
	for _, mod := range spec.Modifications {
		if mod == nil {
			summary.Modifications = append(summary.Modifications, ModificationDescriptor{Type: "<nil>"})
			continue
		}
		summary.Modifications = append(summary.Modifications, ModificationDescriptor{
			Type:  mod.Type(),
			Field: mod.FieldKey(),
		})
		for _, key := range modificationFields(mod) {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			summary.Fields = append(summary.Fields, key)
		}
	}
	sort.Strings(summary.Fields)
	return summary
}

func modificationFields(mod Modification) []string {
	if reorder, ok := mod.(ReorderFields); ok {
		return reorder.Fields
	}
	if key := mod.FieldKey(); key != "" {
		return []string{key}
	}
	return nil
}

// String renders a one-line form, e.g.
// "acme-tenant@1.2.0 [tenantId=acme] renameLabel(billing)".
func (s OverlaySummary) String() string {
	parts := make([]string, 0, len(s.Selector))
	for _, dim := range s.Selector {
		parts = append(parts, dim.Name+"="+dim.Value)
	}
	mods := make([]string, 0, len(s.Modifications))
	for _, mod := range s.Modifications {
		if mod.Field == "" {
			mods = append(mods, mod.Type)
			continue
		}
		mods = append(mods, fmt.Sprintf("%s(%s)", mod.Type, mod.Field))
	}
	return fmt.Sprintf("%s@%s [%s] %s",
		s.OverlayID, s.Version,
		strings.Join(parts, ","),
		strings.Join(mods, " "),
	)
}
