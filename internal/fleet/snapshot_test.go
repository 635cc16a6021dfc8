package fleet

import (
	"errors"
	"io"
	"testing"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
	"github.com/jailfleet/jailfleet/internal/netplan"
	"github.com/jailfleet/jailfleet/internal/storage"
	"github.com/jailfleet/jailfleet/internal/store"
)

// fakeCOW is an in-memory stand-in for a zfs-backed Adapter, just enough
// to exercise Snapshot/ListSnapshots/DeleteSnapshot/Clone without
// shelling out to a real zfs(8).
type fakeCOW struct {
	snapshots map[string][]string // path -> snapshot names
	cloned    map[string]string   // dst -> srcSnapshot
}

func newFakeCOW() *fakeCOW {
	return &fakeCOW{snapshots: make(map[string][]string), cloned: make(map[string]string)}
}

func (f *fakeCOW) SupportsCOW() bool               { return true }
func (f *fakeCOW) EnsureDataset(path string) error { return nil }

func (f *fakeCOW) Snapshot(path, name string) error {
	f.snapshots[path] = append(f.snapshots[path], name)
	return nil
}

func (f *fakeCOW) Clone(srcSnapshot, dst string) error {
	f.cloned[dst] = srcSnapshot
	return nil
}

func (f *fakeCOW) Destroy(path string, recursive bool) error {
	for p, names := range f.snapshots {
		for i, n := range names {
			if p+"@"+n == path {
				f.snapshots[p] = append(names[:i], names[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (f *fakeCOW) Send(srcSnapshot string, w io.Writer) error { return nil }
func (f *fakeCOW) Receive(r io.Reader, dst string) error      { return nil }

func (f *fakeCOW) ListSnapshots(path string) ([]string, error) {
	return f.snapshots[path], nil
}

func newCOWTestOrchestrator(t *testing.T, fleetCfg *config.Fleet) (*Orchestrator, *fakeCOW) {
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
	stor := newFakeCOW()
	orch := NewOrchestrator(fleetCfg, hostadapter.NewNoOp(), stor, layout, records, nil, netplan.NewBridgePools(), ports, nil, 0, nil)
	return orch, stor
}

func oneJailFleet() *config.Fleet {
	return &config.Fleet{Jails: []config.JailSpec{{Name: "web", Hostname: "web"}}}
}

func TestSnapshotRefusesPlainBackend(t *testing.T) {
	orch := newTestOrchestrator(t, oneJailFleet())
	if _, err := orch.Snapshot("web", "before-upgrade"); !errors.Is(err, storage.ErrUnsupported) {
		t.Fatalf("Snapshot() error = %v, want ErrUnsupported", err)
	}
}

func TestSnapshotCreateListDelete(t *testing.T) {
	orch, _ := newCOWTestOrchestrator(t, oneJailFleet())

	snap, err := orch.Snapshot("web", "before-upgrade")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if want := orch.resolvePath(orch.fleet.JailByName("web")) + "@before-upgrade"; snap != want {
		t.Fatalf("Snapshot() = %q, want %q", snap, want)
	}

	names, err := orch.ListSnapshots("web")
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(names) != 1 || names[0] != "before-upgrade" {
		t.Fatalf("ListSnapshots() = %v, want [before-upgrade]", names)
	}

	if err := orch.DeleteSnapshot("web", "before-upgrade"); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	names, err = orch.ListSnapshots("web")
	if err != nil {
		t.Fatalf("ListSnapshots after delete: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("ListSnapshots() after delete = %v, want empty", names)
	}
}

func TestSnapshotUnknownJailRefuses(t *testing.T) {
	orch, _ := newCOWTestOrchestrator(t, oneJailFleet())
	if _, err := orch.Snapshot("ghost", "x"); !errors.Is(err, ErrUnknownJail) {
		t.Fatalf("Snapshot() error = %v, want ErrUnknownJail", err)
	}
}

func TestCloneMaterializesDatasetFromSourceSnapshot(t *testing.T) {
	orch, stor := newCOWTestOrchestrator(t, oneJailFleet())

	if _, err := orch.Snapshot("web", "release-1"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	dst, err := orch.Clone("web", "release-1", "web-staging")
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if want := orch.layout.JailRoot("web-staging"); dst != want {
		t.Fatalf("Clone() = %q, want %q", dst, want)
	}

	wantSrc := orch.resolvePath(orch.fleet.JailByName("web")) + "@release-1"
	if got := stor.cloned[dst]; got != wantSrc {
		t.Fatalf("cloned[%q] = %q, want %q", dst, got, wantSrc)
	}
}

func TestCloneRejectsInvalidNewName(t *testing.T) {
	orch, _ := newCOWTestOrchestrator(t, oneJailFleet())
	if _, err := orch.Clone("web", "release-1", "not a valid name!"); !errors.Is(err, config.ErrInvalidName) {
		t.Fatalf("Clone() error = %v, want ErrInvalidName", err)
	}
}
