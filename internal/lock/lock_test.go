package lock

import (
	"context"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
)

func TestMemLockerSerializesSameDigest(t *testing.T) {
	l := NewMemLocker()
	dgst := digest.FromString("base-release-v1")

	lock1, err := l.AcquireLock(context.Background(), dgst)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		lock2, err := l.AcquireLock(context.Background(), dgst)
		if err != nil {
			t.Errorf("second AcquireLock: %v", err)
			return
		}
		close(acquired)
		_ = lock2.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquirer should have blocked while the first holds the lock")
	case <-time.After(50 * time.Millisecond):
	}

	if err := lock1.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquirer never unblocked after Release")
	}
}

func TestMemLockerAllowsDifferentDigestsConcurrently(t *testing.T) {
	l := NewMemLocker()
	d1 := digest.FromString("release-a")
	d2 := digest.FromString("release-b")

	lock1, err := l.AcquireLock(context.Background(), d1)
	if err != nil {
		t.Fatalf("AcquireLock d1: %v", err)
	}
	defer lock1.Release()

	done := make(chan struct{})
	go func() {
		lock2, err := l.AcquireLock(context.Background(), d2)
		if err != nil {
			t.Errorf("AcquireLock d2: %v", err)
			return
		}
		_ = lock2.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct digests should not contend")
	}
}
