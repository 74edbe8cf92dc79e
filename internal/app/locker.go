package app

import (
	"context"
	"time"
)

// Locker grants a best-effort exclusive lease so only one replica runs the
// periodic sweep at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// LocalLocker always grants the lease; used when no shared lock store is configured.
type LocalLocker struct{}

func (LocalLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
