package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-overlays/pkg/audit"
	"github.com/goliatone/go-overlays/pkg/audit/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := audit.Event{
		Verb:       "overlay.registered",
		OverlayID:  "acme-tenant",
		Version:    "1.2.0",
		ActorID:    actorID.String(),
		TenantID:   tenantID.String(),
		ObjectType: "overlay",
		ObjectID:   "acme-tenant@1.2.0",
		Channel:    "overlays",
		Metadata: map[string]any{
			"source": "fixtures",
		},
		OccurredAt: now,
	}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != "overlay.registered" || record.ObjectType != "overlay" || record.ObjectID != "acme-tenant@1.2.0" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "overlays" {
		t.Fatalf("expected channel overlays got %q", record.Channel)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["overlay_id"] != "acme-tenant" || record.Data["overlay_version"] != "1.2.0" {
		t.Fatalf("expected overlay identity in data got %+v", record.Data)
	}
	if record.Data["source"] != "fixtures" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["source"])
	}
}

func TestHookNotifyNonUUIDActors(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	event := audit.Event{
		Verb:       "overlay.applied",
		OverlayID:  "demo",
		Version:    "1.0.0",
		ActorID:    "service-account",
		ObjectType: "overlay",
		ObjectID:   "demo@1.0.0",
	}
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("expected non-uuid actor to map to uuid.Nil, got %s", sink.records[0].ActorID)
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected a timestamp to be stamped")
	}
}

func TestHookNotifySkips(t *testing.T) {
	t.Run("nil sink", func(t *testing.T) {
		hook := usersink.Hook{}
		if err := hook.Notify(context.Background(), audit.Event{Verb: "x", ObjectType: "overlay", ObjectID: "a@1"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	})

	t.Run("incomplete event", func(t *testing.T) {
		sink := &recordingSink{}
		hook := usersink.Hook{Sink: sink}
		if err := hook.Notify(context.Background(), audit.Event{Verb: "overlay.registered"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
		if len(sink.records) != 0 {
			t.Fatalf("expected incomplete event to be dropped")
		}
	})
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	boom := errors.New("sink offline")
	sink := &recordingSink{err: boom}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), audit.Event{
		Verb:       "overlay.registered",
		OverlayID:  "demo",
		Version:    "1.0.0",
		ObjectType: "overlay",
		ObjectID:   "demo@1.0.0",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}
