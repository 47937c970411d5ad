package overlay

// Outcome classifies what happened when one modification was applied.
type Outcome string

const (
	// OutcomeApplied means the modification changed (or re-asserted) target
	// state.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkippedMissingField means the modification referenced a field
	// absent from this target shape. Never an error: the same overlay may
	// apply across presentations with different field sets.
	OutcomeSkippedMissingField Outcome = "skipped-missing-field"
)

type applyOutcome struct {
	outcome Outcome
	field   string
}

func applied(field string) applyOutcome {
	return applyOutcome{outcome: OutcomeApplied, field: field}
}

func skippedMissing(field string) applyOutcome {
	return applyOutcome{outcome: OutcomeSkippedMissingField, field: field}
}

// Each handler below is a pure function over the (already cloned) target the
// engine passes in. Handlers never allocate outside the target and never
// touch registry state, so every one is independently testable.

func (m HideField) apply(t *Target) applyOutcome {
	field := t.field(m.Field)
	if field == nil {
		return skippedMissing(m.Field)
	}
	field.Visible = false
	return applied(m.Field)
}

func (m RenameLabel) apply(t *Target) applyOutcome {
	field := t.field(m.Field)
	if field == nil {
		return skippedMissing(m.Field)
	}
	field.Label = m.NewLabel
	return applied(m.Field)
}

// apply pins the named fields (those present on the target) to the front in
// the requested order; the rest follow in their original relative order. A
// later reorder fully replaces an earlier one rather than interleaving.
func (m ReorderFields) apply(t *Target) applyOutcome {
	named := make([]FieldDescriptor, 0, len(m.Fields))
	taken := make(map[string]struct{}, len(m.Fields))
	matched := false
	for _, key := range m.Fields {
		if _, dup := taken[key]; dup {
			continue
		}
		if field := t.field(key); field != nil {
			named = append(named, *field)
			taken[key] = struct{}{}
			matched = true
		}
	}
	if !matched {
		return skippedMissing("")
	}
	rest := make([]FieldDescriptor, 0, len(t.Fields)-len(named))
	for _, field := range t.Fields {
		if _, ok := taken[field.Key]; ok {
			continue
		}
		rest = append(rest, field)
	}
	t.Fields = append(named, rest...)
	return applied("")
}

func (m SetDefault) apply(t *Target) applyOutcome {
	field := t.field(m.Field)
	if field == nil {
		return skippedMissing(m.Field)
	}
	field.Default = m.Value
	return applied(m.Field)
}

func (m AddHelpText) apply(t *Target) applyOutcome {
	field := t.field(m.Field)
	if field == nil {
		return skippedMissing(m.Field)
	}
	field.HelpText = m.Text
	return applied(m.Field)
}

func (m MakeRequired) apply(t *Target) applyOutcome {
	field := t.field(m.Field)
	if field == nil {
		return skippedMissing(m.Field)
	}
	field.Required = true
	return applied(m.Field)
}

func (m AddBadge) apply(t *Target) applyOutcome {
	field := t.field(m.Field)
	if field == nil {
		return skippedMissing(m.Field)
	}
	field.Badges = append(field.Badges, Badge{
		Position: m.Position,
		Label:    m.Label,
		Variant:  m.Variant,
	})
	return applied(m.Field)
}

func (m SetLimit) apply(t *Target) applyOutcome {
	field := t.field(m.Field)
	if field == nil {
		return skippedMissing(m.Field)
	}
	field.Limit = &FieldLimit{Max: m.Max, Message: m.Message}
	return applied(m.Field)
}
