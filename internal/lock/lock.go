// Package lock serializes mutations of a single contract across goroutines
// or, with the Redis backend, across service instances.
package lock

import (
	"context"
	"errors"
)

var ErrLockTimeout = errors.New("timed out waiting for contract lock")

// Locker acquires an exclusive lock on key. The returned release func must
// be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
