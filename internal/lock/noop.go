package lock

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// NoOpLocker grants every AcquireLock immediately. Used by tests that
// exercise the Build Planner without caring about cross-build contention.
type NoOpLocker struct{}

func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

func (l *NoOpLocker) AcquireLock(ctx context.Context, dgst digest.Digest) (Lock, error) {
	return &noopLock{}, nil
}

type noopLock struct{}

func (l *noopLock) Release() error {
	return nil
}
