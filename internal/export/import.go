package export

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jailfleet/jailfleet/internal/storage"
)

// Import sniffs r's leading bytes: a COW1 header hands the remaining
// stream to stor.Receive against destDataset; anything else is parsed as
// the tar.gz archive Export produces, extracted under destRootfs. Exactly
// one of destRootfs/destDataset is used depending on which branch fires.
func Import(ctx context.Context, r io.Reader, stor storage.Adapter, destRootfs, destDataset string) (*Meta, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(cowMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek archive header: %w", err)
	}
	if bytes.Equal(head, cowMagic) {
		if _, err := br.Discard(len(cowMagic)); err != nil {
			return nil, err
		}
		if err := stor.Receive(br, destDataset); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return importTar(ctx, br, destRootfs)
}

func importTar(ctx context.Context, r io.Reader, destRootfs string) (*Meta, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	var meta *Meta
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}

		switch {
		case hdr.Name == "meta.json":
			body, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read meta.json: %w", err)
			}
			meta = &Meta{}
			if err := json.Unmarshal(body, meta); err != nil {
				return nil, fmt.Errorf("parse meta.json: %w", err)
			}
		case strings.HasPrefix(hdr.Name, "rootfs/"):
			rel := strings.TrimPrefix(hdr.Name, "rootfs/")
			if rel == "" {
				continue
			}
			dest, err := safeJoin(destRootfs, rel)
			if err != nil {
				return nil, err
			}
			if err := writeEntry(tr, hdr, dest); err != nil {
				return nil, fmt.Errorf("write %s: %w", hdr.Name, err)
			}
		}
	}
	if meta == nil {
		return nil, ErrMalformedArchive
	}
	return meta, nil
}

// safeJoin joins destRootfs and entry, rejecting any result that escapes
// destRootfs via a ".." segment baked into the tar entry name. The check
// is lexical: a symlink extracted from an earlier entry is not resolved.
// Mirrors internal/ociimage's layer-flattening guard against the same
// class of tar traversal.
func safeJoin(destRootfs, entry string) (string, error) {
	dest := filepath.Join(destRootfs, entry)
	if dest != destRootfs && !strings.HasPrefix(dest, destRootfs+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, entry)
	}
	return dest, nil
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
	default:
		return nil
	}
}
