package ociimage

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
)

type tarEntry struct {
	name     string
	typeflag byte
	mode     int64
	contents string
	linkname string
}

func buildLayerBytes(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Mode:     e.mode,
			Size:     int64(len(e.contents)),
			Linkname: e.linkname,
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(e.contents)); err != nil {
			t.Fatalf("write contents: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}

type fakeLayer struct {
	data []byte
}

func (l *fakeLayer) Digest() digest.Digest { return digest.FromBytes(l.data) }
func (l *fakeLayer) Size() int64           { return int64(len(l.data)) }
func (l *fakeLayer) MediaType() string     { return "application/vnd.oci.image.layer.v1.tar+gzip" }
func (l *fakeLayer) Compressed(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.data)), nil
}

func TestFlattenAppliesLayersInOrder(t *testing.T) {
	dir := t.TempDir()
	base := &fakeLayer{data: buildLayerBytes(t, []tarEntry{
		{name: "etc/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "etc/hostname", typeflag: tar.TypeReg, contents: "base\n"},
	})}
	overlay := &fakeLayer{data: buildLayerBytes(t, []tarEntry{
		{name: "etc/hostname", typeflag: tar.TypeReg, contents: "overlay\n"},
	})}

	img := &Image{Digest: digest.FromString("x"), Layers: []Layer{base, overlay}}
	f := NewLayerFlattener(nil)
	if err := f.Flatten(context.Background(), img, dir); err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "etc", "hostname"))
	if err != nil {
		t.Fatalf("read hostname: %v", err)
	}
	if string(got) != "overlay\n" {
		t.Errorf("hostname = %q, want %q", got, "overlay\n")
	}
}

func TestFlattenAppliesWhiteout(t *testing.T) {
	dir := t.TempDir()
	base := &fakeLayer{data: buildLayerBytes(t, []tarEntry{
		{name: "var/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "var/secret", typeflag: tar.TypeReg, contents: "gone\n"},
	})}
	del := &fakeLayer{data: buildLayerBytes(t, []tarEntry{
		{name: "var/.wh.secret", typeflag: tar.TypeReg},
	})}

	img := &Image{Digest: digest.FromString("x"), Layers: []Layer{base, del}}
	f := NewLayerFlattener(nil)
	if err := f.Flatten(context.Background(), img, dir); err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "var", "secret")); !os.IsNotExist(err) {
		t.Errorf("expected var/secret removed by whiteout, stat err = %v", err)
	}
}

func TestFlattenAppliesOpaqueWhiteout(t *testing.T) {
	dir := t.TempDir()
	base := &fakeLayer{data: buildLayerBytes(t, []tarEntry{
		{name: "data/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "data/a", typeflag: tar.TypeReg, contents: "a\n"},
		{name: "data/b", typeflag: tar.TypeReg, contents: "b\n"},
	})}
	opaque := &fakeLayer{data: buildLayerBytes(t, []tarEntry{
		{name: "data/.wh..wh..opaque", typeflag: tar.TypeReg},
		{name: "data/c", typeflag: tar.TypeReg, contents: "c\n"},
	})}

	img := &Image{Digest: digest.FromString("x"), Layers: []Layer{base, opaque}}
	f := NewLayerFlattener(nil)
	if err := f.Flatten(context.Background(), img, dir); err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	for _, removed := range []string{"a", "b"} {
		if _, err := os.Stat(filepath.Join(dir, "data", removed)); !os.IsNotExist(err) {
			t.Errorf("expected data/%s removed by opaque whiteout", removed)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "c")); err != nil {
		t.Errorf("expected data/c present: %v", err)
	}
}

func TestFlattenRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	malicious := &fakeLayer{data: buildLayerBytes(t, []tarEntry{
		{name: "../../etc/passwd", typeflag: tar.TypeReg, contents: "pwned\n"},
	})}

	img := &Image{Digest: digest.FromString("x"), Layers: []Layer{malicious}}
	f := NewLayerFlattener(nil)
	err := f.Flatten(context.Background(), img, dir)
	if err == nil {
		t.Fatal("expected error for traversal entry, got nil")
	}
}

func TestNoOpFlattenerRecordsCalls(t *testing.T) {
	f := NewNoOpFlattener()
	img := &Image{Digest: digest.FromString("release")}
	if err := f.Flatten(context.Background(), img, "/releases/14.1"); err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(f.Calls) != 1 || f.Calls[0].TargetDir != "/releases/14.1" {
		t.Errorf("Calls = %+v, want one call targeting /releases/14.1", f.Calls)
	}
}
