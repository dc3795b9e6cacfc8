package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// KVStore abstracts durable storage of one named value.
// The ledger keeps its whole customer collection under a single key.
type KVStore interface {
	// Load returns the value stored under key. ok is false when the key
	// has never been set.
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Save replaces the value stored under key. It returns only after the
	// value is durable (or reports why it is not).
	Save(ctx context.Context, key string, value []byte) error
}
