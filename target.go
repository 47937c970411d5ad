package overlay

// Badge is a decorative marker attached to a field. Badges accumulate across
// overlays instead of overwriting each other.
type Badge struct {
	Position string `json:"position,omitempty"`
	Label    string `json:"label"`
	Variant  string `json:"variant,omitempty"`
}

// FieldLimit caps a field or collection, with an optional operator-facing
// message.
type FieldLimit struct {
	Max     int    `json:"max"`
	Message string `json:"message,omitempty"`
}

// FieldDescriptor is one entry of a target's field inventory. The consuming
// layer owns the full shape; the engine only touches the aspects the
// modification set can address.
type FieldDescriptor struct {
	Key      string      `json:"key"`
	Label    string      `json:"label"`
	Visible  bool        `json:"visible"`
	Required bool        `json:"required,omitempty"`
	Default  any         `json:"default,omitempty"`
	HelpText string      `json:"helpText,omitempty"`
	Badges   []Badge     `json:"badges,omitempty"`
	Limit    *FieldLimit `json:"limit,omitempty"`
}

// Target is the field inventory the engine customizes: a presentation, form,
// or data view's field list.
type Target struct {
	Fields []FieldDescriptor `json:"fields"`
}

// Clone returns a deep copy. Apply always works on a clone so the input
// target is never mutated and repeated calls with the same inputs stay
// referentially safe.
func (t Target) Clone() Target {
	out := Target{}
	if t.Fields == nil {
		return out
	}
	out.Fields = make([]FieldDescriptor, len(t.Fields))
	for i, field := range t.Fields {
		out.Fields[i] = field.clone()
	}
	return out
}

func (f FieldDescriptor) clone() FieldDescriptor {
	out := f
	if f.Badges != nil {
		out.Badges = append([]Badge(nil), f.Badges...)
	}
	if f.Limit != nil {
		limit := *f.Limit
		out.Limit = &limit
	}
	return out
}

// field returns a pointer into the inventory for in-place handler writes, or
// nil when the key is absent from this target shape.
func (t *Target) field(key string) *FieldDescriptor {
	for i := range t.Fields {
		if t.Fields[i].Key == key {
			return &t.Fields[i]
		}
	}
	return nil
}
