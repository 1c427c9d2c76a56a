package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances. Used to keep two
// workers from ingesting the same document at once.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held elsewhere.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release releases a named lock if held by this instance
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}
