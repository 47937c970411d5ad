package overlay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// Canonicalize renders value in canonical JSON form: object keys sorted
// lexicographically at every depth, no insignificant whitespace, arrays in
// original order. Two structurally equal values always produce the same
// bytes, which makes the output suitable as signing and hashing input.
func Canonicalize(value any) (string, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return "", err
	}
	opts := ojg.Options{Sort: true}
	return oj.JSON(normalized, &opts), nil
}

// CanonicalBytes is Canonicalize returning the raw byte slice.
func CanonicalBytes(value any) ([]byte, error) {
	out, err := Canonicalize(value)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Normalize converts value into the plain JSON value domain: map[string]any,
// []any, string, bool, int64, float64, and nil. Structs and named types are
// routed through encoding/json so their wire tags decide field names.
// json.Number values collapse to int64 when they fit, float64 otherwise, so
// a payload canonicalizes identically no matter which decoder produced it.
func Normalize(value any) (any, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return typed, nil
	case json.Number:
		return normalizeNumber(typed)
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint:
		return int64(typed), nil
	case uint8:
		return int64(typed), nil
	case uint16:
		return int64(typed), nil
	case uint32:
		return int64(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return float64(typed), nil
		}
		return int64(typed), nil
	case float32:
		return normalizeFloat(float64(typed))
	case float64:
		return normalizeFloat(typed)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, entry := range typed {
			normalized, err := Normalize(entry)
			if err != nil {
				return nil, err
			}
			out[key] = normalized
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i, entry := range typed {
			normalized, err := Normalize(entry)
			if err != nil {
				return nil, err
			}
			out[i] = normalized
		}
		return out, nil
	default:
		return normalizeViaJSON(value)
	}
}

func normalizeNumber(number json.Number) (any, error) {
	if integer, err := number.Int64(); err == nil {
		return integer, nil
	}
	float, err := number.Float64()
	if err != nil {
		return nil, fmt.Errorf("canonical: invalid number %q: %w", number.String(), err)
	}
	return normalizeFloat(float)
}

func normalizeFloat(value float64) (any, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("canonical: non-finite number %v is not representable", value)
	}
	// Whole floats collapse to integers so 5 and 5.0 canonicalize the same.
	if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
		return int64(value), nil
	}
	return value, nil
}

func normalizeViaJSON(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("canonical: value of type %T is not JSON-compatible: %w", value, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, fmt.Errorf("canonical: decode %T: %w", value, err)
	}
	return Normalize(out)
}
