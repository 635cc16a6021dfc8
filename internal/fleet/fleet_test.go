package fleet

import (
	"testing"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
	"github.com/jailfleet/jailfleet/internal/netplan"
	"github.com/jailfleet/jailfleet/internal/storage"
	"github.com/jailfleet/jailfleet/internal/store"
)

// newTestOrchestrator wires an Orchestrator against a NoOp host, a plain
// storage backend, and a fresh on-disk layout under t.TempDir — a light
// collaborator set standing in for a real jail/zfs/pf host.
func newTestOrchestrator(t *testing.T, fleetCfg *config.Fleet) *Orchestrator {
	t.Helper()
	return newTestOrchestratorWithHost(t, fleetCfg, hostadapter.NewNoOp())
}

// newTestOrchestratorWithHost is the same wiring as newTestOrchestrator but
// lets a test substitute a host adapter that fails on cue.
func newTestOrchestratorWithHost(t *testing.T, fleetCfg *config.Fleet, host hostadapter.HostAdapter) *Orchestrator {
	t.Helper()

	layout, err := store.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	records := store.NewRecords(layout)
	ports, err := netplan.NewHostPortPool(1, 65535)
	if err != nil {
		t.Fatalf("NewHostPortPool: %v", err)
	}

	return NewOrchestrator(fleetCfg, host, storage.NewPlain(), layout, records, nil, netplan.NewBridgePools(), ports, nil, 0, nil)
}

// linearChain builds a -> b -> c (a depends on b, b depends on c).
func linearChain() *config.Fleet {
	return &config.Fleet{
		Jails: []config.JailSpec{
			{Name: "a", Hostname: "a", DependsOn: []string{"b"}},
			{Name: "b", Hostname: "b", DependsOn: []string{"c"}},
			{Name: "c", Hostname: "c"},
		},
	}
}

// fanOut builds app depending on both db and cache.
func fanOut() *config.Fleet {
	return &config.Fleet{
		Jails: []config.JailSpec{
			{Name: "app", Hostname: "app", DependsOn: []string{"db", "cache"}},
			{Name: "db", Hostname: "db"},
			{Name: "cache", Hostname: "cache"},
		},
	}
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}
