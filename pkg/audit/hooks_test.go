package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHooksNotify(t *testing.T) {
	t.Run("fans out to every hook", func(t *testing.T) {
		first := &CaptureHook{}
		second := &CaptureHook{}
		hooks := Hooks{first, second}

		err := hooks.Notify(context.Background(), BuildOverlayRegisteredEvent(OverlayEventInput{
			OverlayID: "acme-tenant",
			Version:   "1.2.0",
		}))
		if err != nil {
			t.Fatalf("notify: %v", err)
		}
		if len(first.Events) != 1 || len(second.Events) != 1 {
			t.Fatalf("expected both hooks notified, got %d and %d", len(first.Events), len(second.Events))
		}
	})

	t.Run("joins hook errors", func(t *testing.T) {
		boom := errors.New("sink unavailable")
		capture := &CaptureHook{}
		hooks := Hooks{
			HookFunc(func(context.Context, Event) error { return boom }),
			capture,
		}
		err := hooks.Notify(context.Background(), BuildOverlayRegisteredEvent(OverlayEventInput{
			OverlayID: "acme-tenant",
			Version:   "1.2.0",
		}))
		if !errors.Is(err, boom) {
			t.Fatalf("expected joined error to carry the hook failure, got %v", err)
		}
		if len(capture.Events) != 1 {
			t.Fatalf("one failing hook must not starve the others")
		}
	})

	t.Run("drops events without identity", func(t *testing.T) {
		capture := &CaptureHook{}
		hooks := Hooks{capture}
		if err := hooks.Notify(context.Background(), Event{Verb: "overlay.registered"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
		if len(capture.Events) != 0 {
			t.Fatalf("expected event without object identity to be dropped")
		}
	})

	t.Run("nil hooks are skipped", func(t *testing.T) {
		capture := &CaptureHook{}
		hooks := Hooks{nil, capture}
		err := hooks.Notify(nil, Event{
			Verb:       "overlay.registered",
			ObjectType: "overlay",
			ObjectID:   "acme-tenant@1.2.0",
		})
		if err != nil {
			t.Fatalf("notify: %v", err)
		}
		if len(capture.Events) != 1 {
			t.Fatalf("expected surviving hook to be notified")
		}
	})
}

func TestHooksEnabled(t *testing.T) {
	if (Hooks{}).Enabled() {
		t.Fatalf("empty hooks must report disabled")
	}
	if !(Hooks{&CaptureHook{}}).Enabled() {
		t.Fatalf("non-empty hooks must report enabled")
	}
}

func TestNormalizeEvent(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	metadata := map[string]any{"reason": "duplicate"}
	event := NormalizeEvent(Event{
		Verb:      "  overlay.rejected  ",
		OverlayID: " acme-tenant ",
		Version:   " 1.2.0 ",
		TenantID:  " acme ",
		Metadata:  metadata,
	})

	if event.Verb != "overlay.rejected" || event.OverlayID != "acme-tenant" || event.TenantID != "acme" {
		t.Errorf("expected trimmed fields, got %+v", event)
	}
	if event.ObjectID != "acme-tenant@1.2.0" {
		t.Errorf("expected defaulted object id, got %q", event.ObjectID)
	}
	if event.OccurredAt.IsZero() {
		t.Errorf("expected a timestamp to be stamped")
	}

	metadata["reason"] = "mutated"
	if event.Metadata["reason"] != "duplicate" {
		t.Errorf("expected metadata to be cloned")
	}

	stamped := NormalizeEvent(Event{Verb: "x", OccurredAt: now})
	if !stamped.OccurredAt.Equal(now) {
		t.Errorf("expected explicit timestamp to be kept")
	}
}

func TestBuildOverlayEvents(t *testing.T) {
	input := OverlayEventInput{
		OverlayID: "acme-tenant",
		Version:   "1.2.0",
		ActorID:   "actor-1",
		TenantID:  "acme",
	}

	t.Run("registered", func(t *testing.T) {
		event := BuildOverlayRegisteredEvent(input)
		if event.Verb != "overlay.registered" {
			t.Errorf("unexpected verb %q", event.Verb)
		}
		if event.ObjectType != "overlay" || event.ObjectID != "acme-tenant@1.2.0" {
			t.Errorf("unexpected object identity %+v", event)
		}
	})

	t.Run("rejected carries reason", func(t *testing.T) {
		event := BuildOverlayRejectedEvent(input, "overlay already registered")
		if event.Verb != "overlay.rejected" {
			t.Errorf("unexpected verb %q", event.Verb)
		}
		if event.Metadata["reason"] != "overlay already registered" {
			t.Errorf("expected reason in metadata, got %+v", event.Metadata)
		}
	})

	t.Run("applied carries modification counts", func(t *testing.T) {
		event := BuildOverlayAppliedEvent(input, 3, 1)
		if event.Metadata["applied_modifications"] != 3 || event.Metadata["skipped_modifications"] != 1 {
			t.Errorf("unexpected metadata %+v", event.Metadata)
		}
	})
}

func TestEmitter(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if !emitter.Enabled() {
		t.Fatalf("expected emitter enabled")
	}

	err := emitter.Emit(context.Background(), BuildOverlayRegisteredEvent(OverlayEventInput{
		OverlayID: "acme-tenant",
		Version:   "1.2.0",
	}))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one captured event")
	}
	if got := capture.Events[0].Channel; got != "overlays" {
		t.Fatalf("expected default channel overlays, got %q", got)
	}
}

func TestEmitterDisabled(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if emitter.Enabled() {
		t.Fatalf("expected emitter disabled")
	}
	if err := emitter.Emit(context.Background(), BuildOverlayRegisteredEvent(OverlayEventInput{OverlayID: "x", Version: "1"})); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("disabled emitter must not notify hooks")
	}
}
