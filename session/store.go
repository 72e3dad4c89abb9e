package session

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a transient backend failure (connection refused,
// timeout, pipeline error). Callers may retry the call on another backend.
var ErrUnavailable = errors.New("session store unavailable")

// Store is the key-value contract over session records, keyed by token.
//
// Implementations must be safe for concurrent use and must never return
// references into their internal state.
type Store interface {
	// Put inserts or overwrites the record under token. The backend drops
	// the entry once ttl elapses.
	Put(ctx context.Context, token string, rec Record, ttl time.Duration) error
	// Get returns the record for token, tombstones included. Expired
	// entries report absent.
	Get(ctx context.Context, token string) (Record, bool, error)
	// Delete removes token and reports whether a record existed.
	// A missing key is not an error.
	Delete(ctx context.Context, token string) (bool, error)
	// SweepExpired physically removes dead entries and returns how many
	// were removed. Backends with native expiry return 0.
	SweepExpired(ctx context.Context) (int, error)
	// Count returns the number of live, unrevoked records (best effort for
	// networked backends).
	Count(ctx context.Context) (int, error)
	// List returns every live, unrevoked record with its token.
	List(ctx context.Context) ([]Entry, error)
}
