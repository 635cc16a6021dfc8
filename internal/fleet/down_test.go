package fleet

import (
	"context"
	"testing"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/jailstate"
)

// TestDownStopsLinearChainInReverseOrder confirms a (the dependent) must
// stop before c (its transitive dependency).
func TestDownStopsLinearChainInReverseOrder(t *testing.T) {
	fleetCfg := linearChain()
	host := newRecordingHost()
	o := newTestOrchestratorWithHost(t, fleetCfg, host)
	ctx := context.Background()

	if _, err := o.Up(ctx, nil, UpOptions{All: true}); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if _, err := o.Down(ctx, nil, DownOptions{All: true}); err != nil {
		t.Fatalf("Down: %v", err)
	}

	stopped := host.stopOrder()
	if len(stopped) != 3 {
		t.Fatalf("stop calls = %v, want one each for a, b, c", stopped)
	}
	if indexOf(stopped, "a") > indexOf(stopped, "b") {
		t.Fatalf("stop order %v: a should stop before b", stopped)
	}
	if indexOf(stopped, "b") > indexOf(stopped, "c") {
		t.Fatalf("stop order %v: b should stop before c", stopped)
	}

	for _, name := range []string{"a", "b", "c"} {
		rec, err := o.records.Load(name)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if rec.State != jailstate.Stopped {
			t.Fatalf("%s state = %s, want stopped", name, rec.State)
		}
		if len(rec.Ledger) != 0 {
			t.Fatalf("%s ledger not emptied on down: %+v", name, rec.Ledger)
		}
	}
}

// TestDownOnStoppedIsNoOp confirms down on an already-stopped jail is a no-op.
func TestDownOnStoppedIsNoOp(t *testing.T) {
	fleetCfg := &config.Fleet{Jails: []config.JailSpec{{Name: "solo", Hostname: "solo"}}}
	o := newTestOrchestrator(t, fleetCfg)

	if err := o.downOne(context.Background(), "solo"); err != nil {
		t.Fatalf("downOne on a jail with no record: %v", err)
	}
}

// TestDownDrainsEveryLedgerEntryOfANetworkedJail confirms down releases
// every entry a networked jail's up recorded, leaving no ledger behind.
// The strict reverse order of the undo calls is covered by
// internal/ledger's own Rollback tests.
func TestDownDrainsEveryLedgerEntryOfANetworkedJail(t *testing.T) {
	fleetCfg := &config.Fleet{
		Jails: []config.JailSpec{
			{
				Name:     "web",
				Hostname: "web",
				Network:  &config.Network{VNet: true, Bridge: "br0", IPv4: "10.0.0.5"},
			},
		},
	}
	host := newRecordingHost()
	o := newTestOrchestratorWithHost(t, fleetCfg, host)
	ctx := context.Background()

	if err := o.upOne(ctx, "web"); err != nil {
		t.Fatalf("upOne: %v", err)
	}
	recUp, err := o.records.Load("web")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	acquireOrder := make([]string, len(recUp.Ledger))
	for i, e := range recUp.Ledger {
		acquireOrder[i] = string(e.Kind)
	}

	if err := o.downOne(ctx, "web"); err != nil {
		t.Fatalf("downOne: %v", err)
	}

	// jail-instance (stopped via StopJail before the ledger rollback even
	// runs) plus every other kind must have been undone; nothing left.
	recDown, err := o.records.Load("web")
	if err == nil && len(recDown.Ledger) != 0 {
		t.Fatalf("expected ledger fully drained, got %+v", recDown.Ledger)
	}
	if len(acquireOrder) == 0 {
		t.Fatal("expected up to have recorded at least one ledger entry")
	}
}
