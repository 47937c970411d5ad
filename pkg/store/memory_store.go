package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	overlay "github.com/goliatone/go-overlays"
	"github.com/google/uuid"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests
// and examples. It keys records by (overlayId, version) and preserves
// insertion order for List.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	order   []string
}

type memoryRecord struct {
	spec overlay.OverlaySpec
	meta Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) List(_ context.Context) ([]overlay.OverlaySpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]overlay.OverlaySpec, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.records[key].spec.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, spec overlay.OverlaySpec, meta Meta) (Meta, error) {
	key := spec.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[key]; exists {
		return Meta{}, fmt.Errorf("%w: %s", ErrConflict, key)
	}
	stored := cloneMeta(meta)
	if stored.SnapshotID == "" {
		stored.SnapshotID = uuid.NewString()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}
	s.records[key] = memoryRecord{spec: spec.Clone(), meta: stored}
	s.order = append(s.order, key)
	return cloneMeta(stored), nil
}

func (s *MemoryStore) Get(_ context.Context, overlayID, version string) (overlay.OverlaySpec, Meta, bool, error) {
	s.mu.RLock()
	record, ok := s.records[overlayID+"@"+version]
	s.mu.RUnlock()
	if !ok {
		return overlay.OverlaySpec{}, Meta{}, false, nil
	}
	return record.spec.Clone(), cloneMeta(record.meta), true, nil
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
