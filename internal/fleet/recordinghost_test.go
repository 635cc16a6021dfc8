package fleet

import (
	"context"
	"sync"

	"github.com/jailfleet/jailfleet/internal/hostadapter"
)

// recordingHost wraps a NoOp adapter and records the order CreateVNetJail
// and StopJail are called in, so a test can check a dependency finishes
// starting before its dependent does, and stops after it.
type recordingHost struct {
	*hostadapter.NoOp
	mu      sync.Mutex
	created []string
	stopped []string
}

func newRecordingHost() *recordingHost {
	return &recordingHost{NoOp: hostadapter.NewNoOp()}
}

func (r *recordingHost) CreateVNetJail(ctx context.Context, name, path, hostname string, net *hostadapter.NetConfig) error {
	if err := r.NoOp.CreateVNetJail(ctx, name, path, hostname, net); err != nil {
		return err
	}
	r.mu.Lock()
	r.created = append(r.created, name)
	r.mu.Unlock()
	return nil
}

func (r *recordingHost) StopJail(ctx context.Context, name string) error {
	if err := r.NoOp.StopJail(ctx, name); err != nil {
		return err
	}
	r.mu.Lock()
	r.stopped = append(r.stopped, name)
	r.mu.Unlock()
	return nil
}

func (r *recordingHost) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.created...)
}

func (r *recordingHost) stopOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stopped...)
}
