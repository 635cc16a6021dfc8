package ociimage

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/opencontainers/go-digest"
)

// Source abstracts where a release's base image comes from. A Fleet
// Config's global mirror_url, when it names a registry, is resolved to a
// Source before the release's layers are flattened into releases/<tag>/.
type Source interface {
	GetImage(ctx context.Context) (*Image, error)
	Info() string
}

// RegistryProvider fetches from a container registry via
// go-containerregistry. Layer content stays unfetched until Compressed is
// called during flattening.
type RegistryProvider struct {
	ref name.Reference
}

// NewRegistryProvider parses ref (e.g. "freebsd/14.1-release" or
// "registry.internal/jailfleet/base:14.1") into a Source.
func NewRegistryProvider(ref string) (Source, error) {
	normalized := ref
	if !strings.Contains(ref, "/") {
		normalized = "docker.io/library/" + ref
	} else if first := strings.Split(ref, "/")[0]; !strings.Contains(first, ".") && !strings.Contains(first, ":") {
		normalized = "docker.io/" + ref
	}

	parsed, err := name.ParseReference(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidReference, ref, err)
	}
	return &RegistryProvider{ref: parsed}, nil
}

func (p *RegistryProvider) Info() string {
	return p.ref.String()
}

func (p *RegistryProvider) GetImage(ctx context.Context) (*Image, error) {
	platform, err := v1.ParsePlatform(fmt.Sprintf("freebsd/%s", runtime.GOARCH))
	if err != nil {
		return nil, fmt.Errorf("parse platform: %w", err)
	}

	img, err := remote.Image(p.ref, remote.WithContext(ctx), remote.WithPlatform(*platform))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	dgst, err := img.Digest()
	if err != nil {
		return nil, fmt.Errorf("get image digest: %w", err)
	}

	manifest, err := img.Manifest()
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}

	cfgFile, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config file: %w", err)
	}
	cfg := &ImageConfig{
		Entrypoint: cfgFile.Config.Entrypoint,
		Cmd:        cfgFile.Config.Cmd,
		Env:        cfgFile.Config.Env,
		WorkingDir: cfgFile.Config.WorkingDir,
		User:       cfgFile.Config.User,
	}

	rawLayers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("get layers: %w", err)
	}
	layers := make([]Layer, len(rawLayers))
	for i, l := range rawLayers {
		layers[i] = &registryLayer{layer: l}
	}

	size := manifest.Config.Size
	for _, l := range manifest.Layers {
		size += l.Size
	}

	return &Image{
		Digest:   digest.Digest(dgst.String()),
		Config:   cfg,
		Layers:   layers,
		Manifest: &Manifest{MediaType: string(manifest.MediaType), Size: size},
	}, nil
}

// registryLayer adapts a go-containerregistry v1.Layer onto this package's
// Layer interface.
type registryLayer struct {
	layer v1.Layer
}

func (l *registryLayer) Digest() digest.Digest {
	d, err := l.layer.Digest()
	if err != nil {
		return ""
	}
	return digest.Digest(d.String())
}

func (l *registryLayer) Size() int64 {
	size, err := l.layer.Size()
	if err != nil {
		return 0
	}
	return size
}

func (l *registryLayer) MediaType() string {
	mt, err := l.layer.MediaType()
	if err != nil {
		return ""
	}
	return string(mt)
}

func (l *registryLayer) Compressed(ctx context.Context) (io.ReadCloser, error) {
	r, err := l.layer.Compressed()
	if err != nil {
		return nil, fmt.Errorf("get compressed layer: %w", err)
	}
	return r, nil
}

// NoOpProvider returns a fixed empty image, for Build Planner tests that
// don't want to hit a real registry.
type NoOpProvider struct{}

func NewNoOpProvider() *NoOpProvider { return &NoOpProvider{} }

func (p *NoOpProvider) Info() string { return "registry.internal/jailfleet/noop:latest" }

func (p *NoOpProvider) GetImage(ctx context.Context) (*Image, error) {
	return &Image{
		Digest: digest.FromString("noop-release"),
		Config: &ImageConfig{
			Entrypoint: []string{"/bin/sh"},
			WorkingDir: "/",
			User:       "root",
		},
		Layers:   []Layer{},
		Manifest: &Manifest{MediaType: "application/vnd.oci.image.manifest.v1+json"},
	}, nil
}
