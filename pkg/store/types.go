package store

import (
	"context"
	"errors"
	"time"

	overlay "github.com/goliatone/go-overlays"
)

// ErrConflict signals a Put for an (overlayId, version) pair the store
// already holds. Registered overlays are immutable; updates ship as new
// versions, so durable adapters must refuse silent overwrites.
var ErrConflict = errors.New("store: overlay version already stored")

// Meta is storage-owned bookkeeping used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store persists signed overlays. Implementations only move bytes; all
// validation, uniqueness, and ranking semantics stay inside
// overlay.Registry, which Loader replays stored specs through. A durable
// adapter therefore cannot drift from the in-memory contract.
type Store interface {
	// List returns every stored overlay in the order it was stored.
	List(ctx context.Context) ([]overlay.OverlaySpec, error)
	// Put stores one overlay. Storing an (overlayId, version) pair twice
	// fails with ErrConflict.
	Put(ctx context.Context, spec overlay.OverlaySpec, meta Meta) (Meta, error)
	// Get returns one stored overlay by exact (overlayId, version).
	Get(ctx context.Context, overlayID, version string) (overlay.OverlaySpec, Meta, bool, error)
}

// Rejection reports one stored overlay the registry refused during
// hydration.
type Rejection struct {
	OverlayID string
	Version   string
	Err       error
}

// Loader hydrates a registry from a store.
type Loader struct {
	Store Store
}

// Hydrate constructs a registry with the supplied options and replays every
// stored overlay through Register. Validation failures do not abort the
// load; they come back as rejections so operators can see exactly which
// stored overlays no longer pass (expired keys, tampered payloads) while
// the rest keep serving.
func (l Loader) Hydrate(ctx context.Context, opts ...overlay.Option) (*overlay.Registry, []Rejection, error) {
	if l.Store == nil {
		return nil, nil, errors.New("store: store is required")
	}
	specs, err := l.Store.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	registry := overlay.NewRegistry(opts...)
	var rejections []Rejection
	for _, spec := range specs {
		if err := registry.Register(spec); err != nil {
			rejections = append(rejections, Rejection{
				OverlayID: spec.OverlayID,
				Version:   spec.Version,
				Err:       err,
			})
		}
	}
	return registry, rejections, nil
}
