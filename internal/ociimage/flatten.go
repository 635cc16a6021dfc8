package ociimage

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const whiteoutPrefix = ".wh."
const opaqueWhiteout = ".wh..wh..opaque"

// Flattener extracts an Image's layers, in order, into a single target
// directory — the shape a Storage Adapter turns into a release dataset.
type Flattener interface {
	Flatten(ctx context.Context, img *Image, targetDir string) error
}

// LayerFlattener applies each layer's tar stream on top of targetDir,
// honoring OCI whiteout and opaque-whiteout entries so a later layer can
// delete or mask files a base layer introduced.
type LayerFlattener struct {
	log *slog.Logger
}

func NewLayerFlattener(log *slog.Logger) *LayerFlattener {
	if log == nil {
		log = slog.Default()
	}
	return &LayerFlattener{log: log}
}

func (f *LayerFlattener) Flatten(ctx context.Context, img *Image, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	for i, layer := range img.Layers {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.log.Debug("flattening layer", "index", i, "digest", layer.Digest(), "media_type", layer.MediaType())
		if err := f.applyLayer(ctx, layer, targetDir); err != nil {
			return fmt.Errorf("apply layer %d (%s): %w", i, layer.Digest(), err)
		}
	}
	return nil
}

func (f *LayerFlattener) applyLayer(ctx context.Context, layer Layer, targetDir string) error {
	rc, err := layer.Compressed(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		entryName := filepath.Clean(hdr.Name)
		dir, base := filepath.Split(entryName)

		if base == opaqueWhiteout {
			opaqueDir := filepath.Join(targetDir, dir)
			if err := clearDir(opaqueDir); err != nil {
				return fmt.Errorf("apply opaque whiteout %s: %w", dir, err)
			}
			continue
		}
		if strings.HasPrefix(base, whiteoutPrefix) {
			removeTarget, err := safeJoin(targetDir, filepath.Join(dir, base[len(whiteoutPrefix):]))
			if err != nil {
				return err
			}
			if err := os.RemoveAll(removeTarget); err != nil {
				return fmt.Errorf("apply whiteout for %s: %w", base, err)
			}
			continue
		}

		dest, err := safeJoin(targetDir, entryName)
		if err != nil {
			return err
		}

		if err := writeEntry(tr, hdr, dest); err != nil {
			return fmt.Errorf("write entry %s: %w", entryName, err)
		}
	}
}

func writeEntry(tr *tar.Reader, hdr *tar.Header, dest string) error {
	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(dest, os.FileMode(hdr.Mode))
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
		if err != nil {
			return err
		}
		defer out.Close()
		if _, err := io.Copy(out, tr); err != nil {
			return fmt.Errorf("copy contents: %w", err)
		}
		return nil
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		os.Remove(dest)
		return os.Symlink(hdr.Linkname, dest)
	case tar.TypeLink:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		linkTarget := filepath.Join(filepath.Dir(dest), filepath.Base(hdr.Linkname))
		os.Remove(dest)
		return os.Link(linkTarget, dest)
	case tar.TypeChar, tar.TypeBlock, tar.TypeFifo:
		// Device and fifo nodes aren't meaningful inside a jail's rootfs
		// dataset; the jail gets /dev via devfs(8) at start time instead.
		return nil
	default:
		return nil
	}
}

// safeJoin joins targetDir and entry, rejecting any result that escapes
// targetDir via a ".." segment baked into the tar entry name. The check is
// lexical: a symlink written by an earlier entry is not resolved.
func safeJoin(targetDir, entry string) (string, error) {
	dest := filepath.Join(targetDir, entry)
	if dest != targetDir && !strings.HasPrefix(dest, targetDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, entry)
	}
	return dest, nil
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
