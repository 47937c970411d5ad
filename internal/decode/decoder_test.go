package decode

import (
	"errors"
	"strings"
	"testing"
)

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDecode(t *testing.T) {
	decoder := NewDecoder[widget]()
	got, err := decoder.Decode(Context{Source: "test"}, map[string]any{
		"name":  "gear",
		"count": 3,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "gear" || got.Count != 3 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDecodeNilPayload(t *testing.T) {
	decoder := NewDecoder[widget]()
	if _, err := decoder.Decode(Context{Source: "test"}, nil); err == nil {
		t.Fatalf("expected nil payload to fail")
	}
}

func TestDecodePreHook(t *testing.T) {
	t.Run("normalises payload", func(t *testing.T) {
		decoder := NewDecoder[widget](
			WithPreHook[widget](func(_ Context, payload map[string]any) (map[string]any, error) {
				if name, ok := payload["name"].(string); ok {
					payload["name"] = strings.TrimSpace(name)
				}
				return payload, nil
			}),
		)
		got, err := decoder.Decode(Context{}, map[string]any{"name": "  gear  "})
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Name != "gear" {
			t.Fatalf("expected trimmed name, got %q", got.Name)
		}
	})

	t.Run("hook error aborts", func(t *testing.T) {
		hookErr := errors.New("bad shape")
		decoder := NewDecoder[widget](
			WithPreHook[widget](func(Context, map[string]any) (map[string]any, error) {
				return nil, hookErr
			}),
		)
		if _, err := decoder.Decode(Context{}, map[string]any{}); !errors.Is(err, hookErr) {
			t.Fatalf("expected hook error, got %v", err)
		}
	})

	t.Run("caller payload is never mutated", func(t *testing.T) {
		decoder := NewDecoder[widget](
			WithPreHook[widget](func(_ Context, payload map[string]any) (map[string]any, error) {
				payload["name"] = "hijacked"
				return payload, nil
			}),
		)
		payload := map[string]any{"name": "gear"}
		if _, err := decoder.Decode(Context{}, payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload["name"] != "gear" {
			t.Fatalf("hooks must operate on a detached copy, got %v", payload["name"])
		}
	})
}

func TestDecodePostHook(t *testing.T) {
	validationErr := errors.New("count must be positive")
	decoder := NewDecoder[widget](
		WithPostHook[widget](func(_ Context, w *widget) error {
			if w.Count <= 0 {
				return validationErr
			}
			return nil
		}),
	)
	if _, err := decoder.Decode(Context{}, map[string]any{"name": "gear", "count": 0}); !errors.Is(err, validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := decoder.Decode(Context{}, map[string]any{"name": "gear", "count": 1}); err != nil {
		t.Fatalf("expected valid widget to pass, got %v", err)
	}
}

func TestDecodeDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder[widget](WithDisallowUnknownFields[widget]())
	if _, err := decoder.Decode(Context{}, map[string]any{"name": "gear", "colour": "red"}); err == nil {
		t.Fatalf("expected unknown field to fail")
	}
}

func TestDecodeBytes(t *testing.T) {
	decoder := NewDecoder[widget]()

	t.Run("valid json", func(t *testing.T) {
		got, err := decoder.DecodeBytes(Context{Source: "wire"}, []byte(`{"name":"gear","count":9007199254740993}`))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		// Values above 2^53 survive because the intermediate parse keeps
		// json.Number instead of coercing through float64.
		if got.Count != 9007199254740993 {
			t.Fatalf("expected exact large integer, got %d", got.Count)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := decoder.DecodeBytes(Context{Source: "wire"}, []byte(`{"name":`)); err == nil {
			t.Fatalf("expected malformed input to fail")
		}
	})
}

func TestContextLabel(t *testing.T) {
	cases := []struct {
		ctx  Context
		want string
	}{
		{Context{OverlayID: "acme@1.0.0", Source: "wire"}, "acme@1.0.0"},
		{Context{Source: "wire"}, "wire"},
		{Context{}, "<unknown>"},
	}
	for _, tc := range cases {
		if got := tc.ctx.label(); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}
