// Package store defines the persistence-facing contract for durable overlay
// registries, plus a small loader that hydrates an in-memory
// overlay.Registry from any Store implementation.
//
// Responsibilities:
//   - Store only moves signed overlay specs and storage metadata; it never
//     validates, ranks, or verifies signatures.
//   - Loader replays stored specs through overlay.Registry.Register so every
//     adapter inherits the exact uniqueness, validation, and ranking
//     contract of the in-memory registry.
//
// Data flow:
//
//	Store -> Loader.Hydrate(...) -> *overlay.Registry -> Match/Apply
//
// Immutability:
//
//	Put refuses to overwrite an existing (overlayId, version) pair with
//	ErrConflict, mirroring the registry's duplicate-key rejection. Updates
//	are always new versions.
package store
