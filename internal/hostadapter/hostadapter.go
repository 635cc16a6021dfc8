// Package hostadapter is the narrow capability interface the core calls
// through for everything that mutates the host: jail lifecycle, virtual
// networking, the PF anchor, and pulling bytes in from outside the
// machine. Nothing in internal/fleet, internal/health, or internal/build
// shells out directly — they all go through this interface so a test can
// swap in the no-op implementation.
package hostadapter

import (
	"context"
	"time"
)

// NetConfig is the networking half of create_vnet_jail's arguments.
type NetConfig struct {
	VNet    bool
	Bridge  string
	Epair   string // the jail-side member of the pair, e.g. "epair3b"
	IPv4    string
	Gateway string
	MAC     string
}

// ExecResult is what exec_in_jail returns.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// HostAdapter is the operation set a host integration must provide, one method per
// operation. Every method is idempotent where the underlying primitive
// allows it (create_bridge on an existing bridge, stop_jail on an already
// stopped jail, etc. return success rather than erroring).
type HostAdapter interface {
	CreateVNetJail(ctx context.Context, name, path, hostname string, net *NetConfig) error
	StopJail(ctx context.Context, name string) error
	JailExists(ctx context.Context, name string) (bool, error)
	ExecInJail(ctx context.Context, name, user string, argv []string) (ExecResult, error)

	// ExecOnHost runs argv directly on the host, for health checks and
	// hooks whose target is "host" rather than a jail.
	ExecOnHost(ctx context.Context, argv []string) (ExecResult, error)

	CreateBridge(ctx context.Context, name string) error
	DestroyBridge(ctx context.Context, name string) error
	CreateEpair(ctx context.Context) (a, b string, err error)
	DestroyInterface(ctx context.Context, name string) error
	AttachToBridge(ctx context.Context, bridge, iface string) error
	SetIPv4(ctx context.Context, iface, ip, gateway string) error
	SetMAC(ctx context.Context, iface, mac string) error

	// ExistingInterfaces enumerates interface names currently present on
	// the host, used by internal/netplan.NextEpairName to pick a free
	// monotonic index.
	ExistingInterfaces(ctx context.Context) ([]string, error)

	PFAnchorLoad(ctx context.Context, anchor, rules string) error
	PFAnchorUnload(ctx context.Context, anchor string) error

	ExtractArchive(ctx context.Context, path, dest string) error
	Fetch(ctx context.Context, url, dest string) error
}

// DefaultTimeout is the 30s default for short operations.
const DefaultTimeout = 30 * time.Second

// ArchiveTimeout is the 10min default for archive extraction and base
// bootstrap.
const ArchiveTimeout = 10 * time.Minute
