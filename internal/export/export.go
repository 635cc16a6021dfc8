package export

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/storage"
)

// Export writes a gzip-compressed tar archive of meta.json plus
// rootfsDir's full tree to w. This is the portable, adapter-independent
// format every backend can produce and every backend can import.
func Export(ctx context.Context, w io.Writer, j *config.JailSpec, releaseTag, rootfsDir string) error {
	gz := gzip.NewWriter(w)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	meta := metaFromSpec(j, releaseTag, time.Now())
	body, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta.json: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: "meta.json", Mode: 0o644, Size: int64(len(body))}); err != nil {
		return fmt.Errorf("write meta.json header: %w", err)
	}
	if _, err := tw.Write(body); err != nil {
		return fmt.Errorf("write meta.json: %w", err)
	}

	return filepath.Walk(rootfsDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(rootfsDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return writeTarEntry(tw, path, "rootfs/"+filepath.ToSlash(rel), info)
	})
}

func writeTarEntry(tw *tar.Writer, path, name string, info os.FileInfo) error {
	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		l, err := os.Readlink(path)
		if err != nil {
			return err
		}
		link = l
	}
	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}
	if info.Mode().IsRegular() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}
	return nil
}

// ExportNative streams stor's COW-native send format for srcSnapshot to
// w, prefixed with the magic header Import sniffs for. Only meaningful
// against a backend whose SupportsCOW() is true — the caller (cmd/fleetd's
// export subcommand) chooses this path over Export when it wants an
// incremental-friendly transfer instead of a portable rootfs tree.
func ExportNative(stor storage.Adapter, srcSnapshot string, w io.Writer) error {
	if !stor.SupportsCOW() {
		return fmt.Errorf("%w: native export needs a COW-capable backend", storage.ErrUnsupported)
	}
	if _, err := w.Write(cowMagic); err != nil {
		return fmt.Errorf("write magic header: %w", err)
	}
	return stor.Send(srcSnapshot, w)
}
