package audit

import "time"

// OverlayEventInput describes the common fields for overlay lifecycle
// events.
type OverlayEventInput struct {
	OverlayID  string
	Version    string
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildOverlayRegisteredEvent constructs a normalized event for a successful
// registration.
func BuildOverlayRegisteredEvent(input OverlayEventInput) Event {
	return buildOverlayEvent("overlay.registered", input)
}

// BuildOverlayRejectedEvent constructs an event for a registration rejection.
// The reason lands in metadata so the authoring side can act on it.
func BuildOverlayRejectedEvent(input OverlayEventInput, reason string) Event {
	event := buildOverlayEvent("overlay.rejected", input)
	if reason != "" {
		event.Metadata = ensureMetadata(event.Metadata)
		event.Metadata["reason"] = reason
	}
	return event
}

// BuildOverlayAppliedEvent constructs an event describing one overlay's
// contribution to an apply pass.
func BuildOverlayAppliedEvent(input OverlayEventInput, appliedModifications, skippedModifications int) Event {
	event := buildOverlayEvent("overlay.applied", input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["applied_modifications"] = appliedModifications
	event.Metadata["skipped_modifications"] = skippedModifications
	return event
}

func buildOverlayEvent(verb string, input OverlayEventInput) Event {
	return Event{
		Verb:       verb,
		OverlayID:  input.OverlayID,
		Version:    input.Version,
		ActorID:    input.ActorID,
		UserID:     input.UserID,
		TenantID:   input.TenantID,
		ObjectType: "overlay",
		ObjectID:   input.OverlayID + "@" + input.Version,
		Channel:    input.Channel,
		Metadata:   cloneMap(input.Metadata),
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}
