package fleet

import (
	"context"
	"errors"

	"github.com/jailfleet/jailfleet/internal/hostadapter"
)

// failingHost wraps a NoOp adapter but fails CreateVNetJail for one named
// jail, letting tests exercise a mid-sequence failure without a real
// jail host.
type failingHost struct {
	*hostadapter.NoOp
	failCreateFor string
}

var errSimulatedCreateFailure = errors.New("simulated create_vnet_jail failure")

func newFailingHost(failCreateFor string) *failingHost {
	return &failingHost{NoOp: hostadapter.NewNoOp(), failCreateFor: failCreateFor}
}

func (f *failingHost) CreateVNetJail(ctx context.Context, name, path, hostname string, net *hostadapter.NetConfig) error {
	if name == f.failCreateFor {
		return errSimulatedCreateFailure
	}
	return f.NoOp.CreateVNetJail(ctx, name, path, hostname, net)
}
