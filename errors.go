package overlay

import (
	"errors"
	"fmt"
)

// Expected validation failures surfaced by Register. These are data problems
// in the submitted overlay, not programmer errors, so they come back as
// values; panics are reserved for registry misuse (use after Close) and
// engine/registry integrity drift.
var (
	// ErrInvalidSelector rejects an overlay whose appliesTo constrains no
	// dimension.
	ErrInvalidSelector = errors.New("overlay: appliesTo must constrain at least one dimension")
	// ErrUnknownModificationType rejects a modification type outside the
	// closed set.
	ErrUnknownModificationType = errors.New("overlay: unknown modification type")
	// ErrInvalidSignature rejects an overlay whose signature does not verify.
	ErrInvalidSignature = errors.New("overlay: signature verification failed")
	// ErrDuplicateKey rejects re-registration of an (overlayId, version)
	// pair. Registration is immutable; updates are new versions.
	ErrDuplicateKey = errors.New("overlay: overlay already registered")
)

// RegistrationError carries enough detail for the authoring side to act on a
// rejection: which rule failed, on which overlay, and where.
type RegistrationError struct {
	OverlayID string
	Version   string
	Detail    string
	Err       error
}

func (e *RegistrationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Detail == "" {
		return fmt.Sprintf("overlay: register %s@%s: %v", e.OverlayID, e.Version, e.Err)
	}
	return fmt.Sprintf("overlay: register %s@%s: %v (%s)", e.OverlayID, e.Version, e.Err, e.Detail)
}

func (e *RegistrationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func rejection(spec OverlaySpec, sentinel error, detail string) error {
	return &RegistrationError{
		OverlayID: spec.OverlayID,
		Version:   spec.Version,
		Detail:    detail,
		Err:       sentinel,
	}
}
