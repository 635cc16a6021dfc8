// Package ociimage fetches a release's base rootfs from a container
// registry when a Fleet Config's mirror_url names one, and flattens its
// layers into a plain directory the Storage Adapter can dataset-ify. This
// is the path a release tag takes before it's anything jailstate/ledger
// care about — by the time a Jail Spec references a release, it's just a
// path under releases/<tag>/.
package ociimage

import "github.com/opencontainers/go-digest"

// Image is a fetched OCI image: its content digest, runtime config, and
// ordered layers.
type Image struct {
	Digest   digest.Digest
	Config   *ImageConfig
	Layers   []Layer
	Manifest *Manifest
}

// ImageConfig carries the handful of OCI runtime config fields relevant to
// seeding a jail's default environment and entrypoint command.
type ImageConfig struct {
	Entrypoint []string
	Cmd        []string
	Env        []string
	WorkingDir string
	User       string
}

// Manifest is the minimal manifest metadata callers need.
type Manifest struct {
	MediaType string
	Size      int64
}
