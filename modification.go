package overlay

import (
	"encoding/json"
	"fmt"
)

// Modification type tags as they appear on the wire. The set is closed: an
// unrecognized tag is a registration-time validation error, never a silent
// no-op, so a registered overlay can never go inert in some consumer.
const (
	TypeHideField     = "hideField"
	TypeRenameLabel   = "renameLabel"
	TypeReorderFields = "reorderFields"
	TypeSetDefault    = "setDefault"
	TypeAddHelpText   = "addHelpText"
	TypeMakeRequired  = "makeRequired"
	TypeAddBadge      = "addBadge"
	TypeSetLimit      = "setLimit"
)

// ModificationTypes returns the closed set of recognized type tags.
func ModificationTypes() []string {
	return []string{
		TypeAddBadge,
		TypeAddHelpText,
		TypeHideField,
		TypeMakeRequired,
		TypeRenameLabel,
		TypeReorderFields,
		TypeSetDefault,
		TypeSetLimit,
	}
}

// Modification is one field-level change carried by an overlay. The interface
// is sealed; only the variants declared in this package satisfy it, which
// keeps "unknown modification type" a decode-time concern rather than a
// runtime string comparison.
type Modification interface {
	// Type returns the wire tag for the variant.
	Type() string
	// FieldKey returns the target field the modification names, or "" for
	// modifications that address the whole field list.
	FieldKey() string

	apply(t *Target) applyOutcome
	sealed()
}

// Modifications is an ordered modification list with tagged-union JSON
// encoding.
type Modifications []Modification

// HideField sets visible=false on the named field.
type HideField struct {
	Field  string `json:"field"`
	Reason string `json:"reason,omitempty"`
}

// RenameLabel overwrites the named field's label. Last writer wins across
// folded overlays.
type RenameLabel struct {
	Field    string `json:"field"`
	NewLabel string `json:"newLabel"`
}

// ReorderFields pins the named fields to the front of the inventory in the
// given order; unnamed fields keep their relative order after them.
type ReorderFields struct {
	Fields []string `json:"fields"`
}

// SetDefault overwrites the named field's default value.
type SetDefault struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// AddHelpText overwrites the named field's help text. Last writer wins; texts
// are never concatenated.
type AddHelpText struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

// MakeRequired sets required=true on the named field. There is no inverse;
// requiredness is monotonic within one apply pass.
type MakeRequired struct {
	Field string `json:"field"`
}

// AddBadge appends a badge to the named field. Additive on purpose: badges
// from independent overlays are expected to coexist.
type AddBadge struct {
	Field    string `json:"field"`
	Position string `json:"position,omitempty"`
	Label    string `json:"label"`
	Variant  string `json:"variant,omitempty"`
}

// SetLimit overwrites the named field's limit. Last writer wins.
type SetLimit struct {
	Field   string `json:"field"`
	Max     int    `json:"max"`
	Message string `json:"message,omitempty"`
}

func (HideField) Type() string     { return TypeHideField }
func (RenameLabel) Type() string   { return TypeRenameLabel }
func (ReorderFields) Type() string { return TypeReorderFields }
func (SetDefault) Type() string    { return TypeSetDefault }
func (AddHelpText) Type() string   { return TypeAddHelpText }
func (MakeRequired) Type() string  { return TypeMakeRequired }
func (AddBadge) Type() string      { return TypeAddBadge }
func (SetLimit) Type() string      { return TypeSetLimit }

func (m HideField) FieldKey() string    { return m.Field }
func (m RenameLabel) FieldKey() string  { return m.Field }
func (ReorderFields) FieldKey() string  { return "" }
func (m SetDefault) FieldKey() string   { return m.Field }
func (m AddHelpText) FieldKey() string  { return m.Field }
func (m MakeRequired) FieldKey() string { return m.Field }
func (m AddBadge) FieldKey() string     { return m.Field }
func (m SetLimit) FieldKey() string     { return m.Field }

func (HideField) sealed()     {}
func (RenameLabel) sealed()   {}
func (ReorderFields) sealed() {}
func (SetDefault) sealed()    {}
func (AddHelpText) sealed()   {}
func (MakeRequired) sealed()  {}
func (AddBadge) sealed()      {}
func (SetLimit) sealed()      {}

// wireValue returns the modification as a plain JSON object including its
// type tag. Shared by JSON marshalling and the canonical signing payload so
// both always agree byte for byte.
func wireValue(m Modification) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("overlay: encode %s modification: %w", m.Type(), err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("overlay: encode %s modification: %w", m.Type(), err)
	}
	out["type"] = m.Type()
	return out, nil
}

// MarshalJSON encodes each modification with its type tag injected.
func (m Modifications) MarshalJSON() ([]byte, error) {
	out := make([]map[string]any, len(m))
	for i, mod := range m {
		if mod == nil {
			return nil, fmt.Errorf("overlay: modification %d is nil", i)
		}
		value, err := wireValue(mod)
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a tagged-union list, rejecting unknown type tags.
func (m *Modifications) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Modifications, 0, len(raw))
	for i, entry := range raw {
		mod, err := decodeModification(entry)
		if err != nil {
			return fmt.Errorf("overlay: modification %d: %w", i, err)
		}
		out = append(out, mod)
	}
	*m = out
	return nil
}

func decodeModification(raw json.RawMessage) (Modification, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}

	var target Modification
	switch envelope.Type {
	case TypeHideField:
		var v HideField
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		target = v
	case TypeRenameLabel:
		var v RenameLabel
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		target = v
	case TypeReorderFields:
		var v ReorderFields
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		target = v
	case TypeSetDefault:
		var v SetDefault
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		target = v
	case TypeAddHelpText:
		var v AddHelpText
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		target = v
	case TypeMakeRequired:
		var v MakeRequired
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		target = v
	case TypeAddBadge:
		var v AddBadge
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		target = v
	case TypeSetLimit:
		var v SetLimit
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		target = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModificationType, envelope.Type)
	}
	return target, nil
}
