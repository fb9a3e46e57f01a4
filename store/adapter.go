package store

import "context"

// Adapter is the storage capability a Store persists to. Keys and values
// are plain strings; the store namespaces its keys with PersistPrefix.
// Implementations must be safe for concurrent use, since throttled writes
// run on a timer goroutine.
type Adapter interface {
	// Get retrieves a value by key. Returns "", false, nil if not found.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value by key.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key. No error if key doesn't exist.
	Delete(ctx context.Context, key string) error
}

// KeyLister is implemented by adapters that can enumerate their keys.
// Stores use it to purge persisted entries that no policy mentions.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}
