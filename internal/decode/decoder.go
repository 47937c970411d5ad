package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the payload being decoded for error reporting.
type Context struct {
	Source    string
	OverlayID string
}

func (c Context) label() string {
	if c.OverlayID != "" {
		return c.OverlayID
	}
	if c.Source != "" {
		return c.Source
	}
	return "<unknown>"
}

// PreHook lets callers normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded struct afterwards.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts raw overlay payloads into strongly typed structs. The
// decode path is total over any JSON input: malformed payloads surface as
// errors, never panics, and hooks run on detached copies so the caller's
// payload map is never mutated.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber so numeric fields survive
// decoding without float coercion.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into the target struct T applying configured
// hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("decode: payload is nil for %q", ctx.label())
	}

	current, err := clonePayload(payload)
	if err != nil {
		return zero, fmt.Errorf("decode: clone payload for %q: %w", ctx.label(), err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("decode: pre-hook for %q failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	buffer, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("decode: marshal payload for %q: %w", ctx.label(), err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("decode: %q: %w", ctx.label(), err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("decode: post-hook for %q failed: %w", ctx.label(), err)
		}
	}

	return result, nil
}

// DecodeBytes parses raw JSON bytes and decodes them.
func (d *Decoder[T]) DecodeBytes(ctx Context, raw []byte) (T, error) {
	var zero T
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return zero, fmt.Errorf("decode: parse %q: %w", ctx.label(), err)
	}
	return d.Decode(ctx, payload)
}

// clonePayload detaches the payload via a JSON round trip. The re-parse keeps
// UseNumber on so large integers are not coerced through float64 on the way.
func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	decoder.UseNumber()
	var out map[string]any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
