package overlay

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/mod/semver"
)

// RankedOverlay annotates a matched overlay with the values the ranking is
// computed from. Rank order is (specificity, priority, registration order):
// specificity first so narrow targeting beats broad targeting by default,
// priority only breaks ties among equally narrow overlays, and registration
// order is the final deterministic tie-break so identical inputs always
// resolve the same way across runs.
type RankedOverlay struct {
	Overlay     OverlaySpec
	Specificity int
	Priority    int
	Order       int
}

// Registry indexes validated, signed overlays and answers which of them apply
// to a context and in what order. Construct instances explicitly and pass
// them to callers; there is no package-level registry, so tests always get
// isolated state.
type Registry struct {
	mu      sync.RWMutex
	cfg     registryConfig
	entries map[string]registryEntry
	order   int
	closed  bool

	guardOnce sync.Once
	guard     GuardEvaluator
}

type registryEntry struct {
	spec        OverlaySpec
	specificity int
	order       int
}

// NewRegistry builds an empty registry. Without WithAllowUnsigned a
// KeyResolver is required before any Register call can succeed.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		cfg:     applyOptions(opts),
		entries: map[string]registryEntry{},
	}
}

// Register validates the overlay and indexes it. Expected failures come back
// as a *RegistrationError wrapping ErrInvalidSelector,
// ErrUnknownModificationType, ErrInvalidSignature, or ErrDuplicateKey; the
// overlay is not stored in any of those cases. The uniqueness check and the
// insert share one critical section, so concurrent registrations of the same
// (overlayId, version) produce exactly one success and one duplicate
// rejection.
func (r *Registry) Register(spec OverlaySpec) error {
	start := time.Now()
	err := r.register(spec)
	r.cfg.engineLogger().LogOperation(EngineLogEvent{
		Op:        "register",
		OverlayID: spec.OverlayID,
		Version:   spec.Version,
		Duration:  time.Since(start),
		Err:       err,
	})
	r.emitRegistration(spec, err)
	return err
}

func (r *Registry) register(spec OverlaySpec) error {
	if spec.AppliesTo.IsEmpty() {
		return rejection(spec, ErrInvalidSelector, "selector constrains no dimension")
	}
	for i, mod := range spec.Modifications {
		if mod == nil {
			return rejection(spec, ErrUnknownModificationType, fmt.Sprintf("modification %d is nil", i))
		}
		if !knownModification(mod) {
			return rejection(spec, ErrUnknownModificationType, fmt.Sprintf("modification %d: %q", i, mod.Type()))
		}
	}
	if !r.cfg.allowUnsigned {
		if spec.Signature == nil {
			return rejection(spec, ErrInvalidSignature, "signature envelope missing")
		}
		if !Verify(spec, r.cfg.resolver) {
			return rejection(spec, ErrInvalidSignature, fmt.Sprintf("publicKeyId %q", spec.Signature.PublicKeyID))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkOpen()
	key := spec.Key()
	if _, exists := r.entries[key]; exists {
		return rejection(spec, ErrDuplicateKey, key)
	}
	r.entries[key] = registryEntry{
		spec:        spec.Clone(),
		specificity: spec.AppliesTo.Specificity(),
		order:       r.order,
	}
	r.order++
	return nil
}

// Match returns every registered overlay whose selector matches ctx, sorted
// descending by (specificity, priority, registration order). Match only
// reads; it is safe to call concurrently and repeatedly against the same
// registry without coordination.
func (r *Registry) Match(ctx MatchContext) []RankedOverlay {
	start := time.Now()

	matched := func() []RankedOverlay {
		r.mu.RLock()
		defer r.mu.RUnlock()
		r.checkOpen()
		out := make([]RankedOverlay, 0, len(r.entries))
		for _, entry := range r.entries {
			if !entry.spec.AppliesTo.Matches(ctx) {
				continue
			}
			out = append(out, RankedOverlay{
				Overlay:     entry.spec.Clone(),
				Specificity: entry.specificity,
				Priority:    entry.spec.Priority,
				Order:       entry.order,
			})
		}
		return out
	}()

	matched = r.filterByGuard(ctx, matched)

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Specificity != matched[j].Specificity {
			return matched[i].Specificity > matched[j].Specificity
		}
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].Order < matched[j].Order
	})

	r.cfg.engineLogger().LogOperation(EngineLogEvent{
		Op:       "match",
		Matched:  len(matched),
		Duration: time.Since(start),
	})
	return matched
}

// Get returns the overlay registered under overlayID. With a version
// argument the lookup is exact; without one it returns the highest version
// by semantic-version comparison, not string comparison.
func (r *Registry) Get(overlayID string, version ...string) (OverlaySpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.checkOpen()

	if len(version) > 0 {
		entry, ok := r.entries[overlayID+"@"+version[0]]
		if !ok {
			return OverlaySpec{}, false
		}
		return entry.spec.Clone(), true
	}

	var (
		best  OverlaySpec
		found bool
	)
	for _, entry := range r.entries {
		if entry.spec.OverlayID != overlayID {
			continue
		}
		if !found || semverLess(best.Version, entry.spec.Version) {
			best = entry.spec
			found = true
		}
	}
	if !found {
		return OverlaySpec{}, false
	}
	return best.Clone(), true
}

// Len reports the number of registered overlays.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.checkOpen()
	return len(r.entries)
}

// Resolve is the consumer-boundary convenience: Match then Apply in one
// call.
func (r *Registry) Resolve(ctx MatchContext, target Target) ApplyResult {
	return r.Engine().Apply(target, r.Match(ctx))
}

// Engine returns an engine sharing this registry's configuration (logger and
// audit hooks).
func (r *Registry) Engine() *Engine {
	return &Engine{cfg: r.cfg}
}

// Close marks the registry unusable. Any operation afterwards panics: using
// a closed registry is a programmer error, not a runtime condition.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.entries = nil
}

func (r *Registry) checkOpen() {
	if r.closed {
		panic("overlay: registry used after Close")
	}
}

func knownModification(m Modification) bool {
	switch m.(type) {
	case HideField, RenameLabel, ReorderFields, SetDefault,
		AddHelpText, MakeRequired, AddBadge, SetLimit:
		return true
	default:
		return false
	}
}

// semverLess reports a < b by semantic-version ordering, falling back to
// string comparison when the versions are equal or unparseable.
func semverLess(a, b string) bool {
	if cmp := semver.Compare("v"+a, "v"+b); cmp != 0 {
		return cmp < 0
	}
	return a < b
}
