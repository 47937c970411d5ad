package overlay

import (
	"fmt"
	"time"
)

// AuditEvent records what one modification did during an apply pass. The
// engine returns the full trail to the caller and performs no I/O itself;
// persisting the trail is the caller's responsibility.
type AuditEvent struct {
	OverlayID        string  `json:"overlayId"`
	Version          string  `json:"version"`
	ModificationType string  `json:"modificationType"`
	Field            string  `json:"field,omitempty"`
	Outcome          Outcome `json:"outcome"`
}

// ApplyResult is the outcome of folding matched overlays onto one target.
type ApplyResult struct {
	Target            Target       `json:"target"`
	AppliedOverlayIDs []string     `json:"appliedOverlayIds"`
	Audit             []AuditEvent `json:"audit"`
}

// Engine folds ranked overlays onto targets. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	cfg registryConfig
}

// NewEngine builds a standalone engine. Engines obtained from
// Registry.Engine share the registry's logger and audit hooks instead.
func NewEngine(opts ...Option) *Engine {
	return &Engine{cfg: applyOptions(opts)}
}

// Apply folds the ranked overlays onto target and returns a new target plus
// the audit trail. The input target is never mutated.
//
// Ranked overlays arrive ordered strongest first, but folding happens in
// ascending rank order: the least specific overlay writes first and the most
// specific writes last, so on any contested field-and-aspect the most
// specific overlay is the last writer and wins. Within one overlay the
// modifications array applies in order.
//
// Apply never fails on data-shape mismatches; a modification naming a field
// absent from this target records a skipped-missing-field event and folding
// continues. It panics only when a modification falls outside the closed
// type set, which registration-time validation makes unreachable — hitting
// it means the registry and engine disagree about the modification set and
// the process should fail loudly.
func (e *Engine) Apply(target Target, ranked []RankedOverlay) ApplyResult {
	start := time.Now()
	result := ApplyResult{
		Target:            target.Clone(),
		AppliedOverlayIDs: make([]string, 0, len(ranked)),
		Audit:             []AuditEvent{},
	}

	for i := len(ranked) - 1; i >= 0; i-- {
		overlay := ranked[i].Overlay
		for _, mod := range overlay.Modifications {
			if mod == nil || !knownModification(mod) {
				panic(fmt.Sprintf("overlay: apply %s: modification outside the closed type set (%T)", overlay.Key(), mod))
			}
			outcome := mod.apply(&result.Target)
			result.Audit = append(result.Audit, AuditEvent{
				OverlayID:        overlay.OverlayID,
				Version:          overlay.Version,
				ModificationType: mod.Type(),
				Field:            outcome.field,
				Outcome:          outcome.outcome,
			})
		}
		result.AppliedOverlayIDs = append(result.AppliedOverlayIDs, overlay.OverlayID)
	}

	e.cfg.engineLogger().LogOperation(EngineLogEvent{
		Op:       "apply",
		Matched:  len(ranked),
		Duration: time.Since(start),
	})
	e.emitApplied(ranked, result)
	return result
}
