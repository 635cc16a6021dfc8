package storage

import (
	"fmt"
	"io"
	"os"
)

// Plain is a directory-only backend: EnsureDataset creates a directory,
// everything COW-specific errors with ErrUnsupported. Callers of the
// COW-only operations (snapshot, clone, build, native export) test
// SupportsCOW and refuse before touching anything; a Jail Spec's release
// is materialized on this backend by copying the release tree. check()
// does not consult the backend.
type Plain struct{}

// NewPlain returns a directory-backed Adapter.
func NewPlain() *Plain { return &Plain{} }

func (p *Plain) SupportsCOW() bool { return false }

func (p *Plain) EnsureDataset(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDatasetCreateFailed, path, err)
	}
	return nil
}

func (p *Plain) Snapshot(path, name string) error {
	return fmt.Errorf("%w: snapshot", ErrUnsupported)
}

func (p *Plain) Clone(srcSnapshot, dst string) error {
	return fmt.Errorf("%w: clone", ErrUnsupported)
}

func (p *Plain) Destroy(path string, recursive bool) error {
	if recursive {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDestroyFailed, path, err)
		}
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDestroyFailed, path, err)
	}
	return nil
}

func (p *Plain) Send(srcSnapshot string, w io.Writer) error {
	return fmt.Errorf("%w: send", ErrUnsupported)
}

func (p *Plain) Receive(r io.Reader, dst string) error {
	return fmt.Errorf("%w: receive", ErrUnsupported)
}

func (p *Plain) ListSnapshots(path string) ([]string, error) {
	return nil, fmt.Errorf("%w: list_snapshots", ErrUnsupported)
}
