package ociimage

import (
	"context"
	"io"

	"github.com/opencontainers/go-digest"
)

// Layer is a single OCI layer. Content is fetched lazily — Compressed
// isn't called until flattening actually needs the bytes.
type Layer interface {
	Digest() digest.Digest
	Size() int64
	MediaType() string
	Compressed(ctx context.Context) (io.ReadCloser, error)
}
