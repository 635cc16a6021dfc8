package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jailfleet/jailfleet/internal/jailstate"
	"github.com/jailfleet/jailfleet/internal/ledger"
)

// JailRecord is the Jail Runtime Record: what the
// orchestrator remembers about an in-progress or live jail, persisted so
// ps/cleanup/the supervisor see a consistent picture across invocations.
type JailRecord struct {
	Name          string          `json:"name"`
	State         jailstate.State `json:"state"`
	Ledger        []ledger.Entry  `json:"ledger"`
	LastError     string          `json:"last_error,omitempty"`
	HealthVerdict string          `json:"health_verdict,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Records persists JailRecords under a Layout's state/ directory.
type Records struct {
	layout *Layout
}

// NewRecords wraps layout for runtime-record access.
func NewRecords(layout *Layout) *Records {
	return &Records{layout: layout}
}

// Load reads name's runtime record. A missing file returns
// ErrRecordNotFound; an unparseable one returns ErrRecordCorrupt without
// modifying the file — the caller must refuse to mutate that jail until
// ForceReset is called (what cleanup --force does).
func (r *Records) Load(name string) (*JailRecord, error) {
	path := r.layout.StateFile(name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rec JailRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRecordCorrupt, path, err)
	}
	return &rec, nil
}

// Save rewrites name's runtime record whole, via atomic rename, per
// (state files are written whole on every transition).
func (r *Records) Save(rec *JailRecord) error {
	rec.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal runtime record for %s: %w", rec.Name, err)
	}
	return writeFileAtomic(r.layout.StateFile(rec.Name), data, 0o644)
}

// ForceReset overwrites a corrupt or orphaned record with a pristine
// Stopped record, the effect of `cleanup --force` on the state file.
func (r *Records) ForceReset(name string) error {
	return r.Save(&JailRecord{Name: name, State: jailstate.Stopped})
}

// Delete removes name's runtime record entirely (used once a jail's ledger
// is fully undone and it has no reason to persist Stopped state forever).
func (r *Records) Delete(name string) error {
	err := os.Remove(r.layout.StateFile(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
