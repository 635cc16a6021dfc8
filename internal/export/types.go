// Package export implements the archive format: a
// gzip-compressed tar of meta.json plus rootfs/, with an optional
// COW-native stream (an adapter's opaque send/receive blob) marked by a
// leading "COW1" magic header that Import sniffs for.
package export

import (
	"time"

	"github.com/jailfleet/jailfleet/internal/config"
)

// cowMagic prefixes a native export so Import can tell it apart from a
// tar.gz archive without trying to gunzip it first.
var cowMagic = []byte("COW1")

// Meta is the jail spec snapshot an export carries alongside its rootfs,
// serialized as meta.json at the archive's root.
type Meta struct {
	Name       string       `json:"name"`
	Hostname   string       `json:"hostname"`
	Release    string       `json:"release"`
	ExportedAt time.Time    `json:"exported_at"`
	Network    *NetworkMeta `json:"network,omitempty"`
}

// NetworkMeta is the subset of a Jail Spec's Network worth carrying
// across an export/import boundary — enough to recreate the jail's
// placement, not enough to imply it still owns those resources.
type NetworkMeta struct {
	Bridge string `json:"bridge"`
	IPv4   string `json:"ipv4"`
}

func metaFromSpec(j *config.JailSpec, releaseTag string, now time.Time) *Meta {
	m := &Meta{Name: j.Name, Hostname: j.Hostname, Release: releaseTag, ExportedAt: now}
	if j.Network != nil {
		m.Network = &NetworkMeta{Bridge: j.Network.Bridge, IPv4: j.Network.IPv4}
	}
	return m
}
