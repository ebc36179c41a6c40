package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to one session across engine replicas.
// Lock blocks until the key is held or ctx ends; the lock lapses after ttl
// if the holder dies. The returned UnlockFunc must be called exactly once.
type DistributedLocker interface {
	Lock(ctx context.Context, sessionID string, ttl time.Duration) (UnlockFunc, error)
}

// LockerFunc adapts a function to the DistributedLocker interface.
type LockerFunc func(ctx context.Context, sessionID string, ttl time.Duration) (UnlockFunc, error)

func (f LockerFunc) Lock(ctx context.Context, sessionID string, ttl time.Duration) (UnlockFunc, error) {
	return f(ctx, sessionID, ttl)
}
