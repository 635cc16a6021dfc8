package fleet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/ledger"
)

// acquireDataset implements the "ensure base/clone dataset" step of up: a
// COW backend clones the release snapshot directly; a plain backend
// materializes the jail's directory by copying the release tree onto it,
// the same plain-backend fallback internal/build.Executor uses for its own
// scratch jail.
func (o *Orchestrator) acquireDataset(led *ledger.Ledger, j *config.JailSpec) (string, error) {
	path := o.resolvePath(j)

	if j.Release != "" && o.stor.SupportsCOW() {
		baseSnap := o.layout.ReleaseDir(j.Release) + "@base"
		if err := o.stor.Clone(baseSnap, path); err != nil {
			return "", fmt.Errorf("clone release %s for %s: %w", j.Release, j.Name, err)
		}
		led.Append(ledger.KindClone, path)
		return path, nil
	}

	if err := o.stor.EnsureDataset(path); err != nil {
		return "", fmt.Errorf("ensure dataset %s: %w", path, err)
	}
	led.Append(ledger.KindDataset, path)

	if j.Release != "" {
		if err := copyTree(o.layout.ReleaseDir(j.Release), path); err != nil {
			return "", fmt.Errorf("materialize release %s for %s: %w", j.Release, j.Name, err)
		}
	}
	return path, nil
}

// copyTree copies src onto dest, recursively when src is a directory.
// Mirrors internal/build's own copyTree; kept local rather than exported
// from build to avoid coupling the two packages over an implementation
// detail neither's public API needs.
func copyTree(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return copyFile(src, dest, info.Mode())
	}

	if err := os.MkdirAll(dest, info.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
