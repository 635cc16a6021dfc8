package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jailfleet/jailfleet/internal/jailstate"
	"github.com/jailfleet/jailfleet/internal/ledger"
)

func TestRecordsSaveAndLoadRoundTrip(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	records := NewRecords(layout)

	rec := &JailRecord{
		Name:  "web",
		State: jailstate.Running,
		Ledger: []ledger.Entry{
			{ID: "1", Kind: ledger.KindDataset, Identifier: "zroot/jailfleet/web"},
		},
	}
	if err := records.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := records.Load("web")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "web" || got.State != jailstate.Running {
		t.Fatalf("got %+v", got)
	}
	if len(got.Ledger) != 1 || got.Ledger[0].Identifier != "zroot/jailfleet/web" {
		t.Fatalf("ledger not round-tripped: %+v", got.Ledger)
	}
}

func TestRecordsLoadMissingReturnsNotFound(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	records := NewRecords(layout)

	if _, err := records.Load("ghost"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRecordsLoadCorruptReturnsCorrupt(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	records := NewRecords(layout)

	if err := os.WriteFile(layout.StateFile("web"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt record: %v", err)
	}

	if _, err := records.Load("web"); !errors.Is(err, ErrRecordCorrupt) {
		t.Fatalf("expected ErrRecordCorrupt, got %v", err)
	}

	// ForceReset must recover from corruption (what cleanup --force does).
	if err := records.ForceReset("web"); err != nil {
		t.Fatalf("ForceReset: %v", err)
	}
	got, err := records.Load("web")
	if err != nil {
		t.Fatalf("Load after ForceReset: %v", err)
	}
	if got.State != jailstate.Stopped {
		t.Fatalf("expected Stopped after ForceReset, got %s", got.State)
	}
}

func TestLayoutCreatesEverySubdirectory(t *testing.T) {
	root := t.TempDir()
	layout, err := NewLayout(root)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}

	for _, dir := range []string{layout.JailsDir(), layout.StateDir(), layout.ReleasesDir(), layout.BuildsDir(), layout.PFDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected %s to exist as a directory, err=%v", dir, err)
		}
	}
}

func TestWriteAnchorConfWritesBody(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	if err := layout.WriteAnchorConf("tcp from any to port 80 -> 172.16.0.5 port 80\n"); err != nil {
		t.Fatalf("WriteAnchorConf: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(layout.PFDir(), "anchor.conf"))
	if err != nil {
		t.Fatalf("read anchor.conf: %v", err)
	}
	if string(data) != "tcp from any to port 80 -> 172.16.0.5 port 80\n" {
		t.Fatalf("unexpected anchor.conf contents: %q", data)
	}
}
