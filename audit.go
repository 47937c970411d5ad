package overlay

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goliatone/go-overlays/pkg/audit"
)

// AuditHooks is the push-side fan-out for overlay lifecycle events. The
// engine still returns the full audit trail from Apply regardless; hooks are
// for callers who also want events pushed somewhere (activity log, metrics)
// without polling results.
type AuditHooks = audit.Hooks

// WithAuditHooks attaches audit hooks to the registry configuration. Hooks
// are cloned and nil entries dropped to preserve immutability.
func WithAuditHooks(hooks AuditHooks) Option {
	normalized := make(AuditHooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		normalized = nil
	}
	return func(cfg *registryConfig) {
		cfg.auditHooks = normalized
	}
}

func (r *Registry) emitRegistration(spec OverlaySpec, err error) {
	if !r.cfg.auditHooks.Enabled() {
		return
	}
	input := audit.OverlayEventInput{
		OverlayID: spec.OverlayID,
		Version:   spec.Version,
		TenantID:  spec.AppliesTo.TenantID,
		UserID:    spec.AppliesTo.UserID,
	}
	var event audit.Event
	if err != nil {
		reason := err.Error()
		var regErr *RegistrationError
		if errors.As(err, &regErr) && regErr.Err != nil {
			reason = regErr.Err.Error()
		}
		event = audit.BuildOverlayRejectedEvent(input, reason)
	} else {
		event = audit.BuildOverlayRegisteredEvent(input)
	}
	// Hook failures never affect registration; they are the hook owner's
	// problem.
	_ = r.cfg.auditHooks.Notify(context.Background(), event)
}

func (e *Engine) emitApplied(ranked []RankedOverlay, result ApplyResult) {
	if !e.cfg.auditHooks.Enabled() {
		return
	}
	for _, match := range ranked {
		appliedCount, skippedCount := 0, 0
		for _, event := range result.Audit {
			if event.OverlayID != match.Overlay.OverlayID || event.Version != match.Overlay.Version {
				continue
			}
			if event.Outcome == OutcomeApplied {
				appliedCount++
			} else {
				skippedCount++
			}
		}
		event := audit.BuildOverlayAppliedEvent(audit.OverlayEventInput{
			OverlayID: match.Overlay.OverlayID,
			Version:   match.Overlay.Version,
			TenantID:  match.Overlay.AppliesTo.TenantID,
			UserID:    match.Overlay.AppliesTo.UserID,
		}, appliedCount, skippedCount)
		_ = e.cfg.auditHooks.Notify(context.Background(), event)
	}
}

// AuditTrail wraps an apply pass's events for persistence or transport.
type AuditTrail struct {
	Events []AuditEvent `json:"events"`
}

// ToJSON serialises the trail for logging or transport helpers.
func (t AuditTrail) ToJSON() ([]byte, error) {
	type alias AuditTrail
	return json.Marshal(alias(t))
}

// AuditTrailFromJSON deserialises a payload previously generated via ToJSON.
func AuditTrailFromJSON(payload []byte) (AuditTrail, error) {
	type alias AuditTrail
	var trail alias
	if err := json.Unmarshal(payload, &trail); err != nil {
		return AuditTrail{}, err
	}
	return AuditTrail(trail), nil
}
