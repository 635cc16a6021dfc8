package netplan

import "errors"

var (
	// ErrIPPoolExhausted means a bridge's address pool has no free IP left.
	ErrIPPoolExhausted = errors.New("no available IP addresses in bridge pool")

	// ErrIPNotAllocated means a Release call named an IP outside the
	// pool's range.
	ErrIPNotAllocated = errors.New("IP address is not currently allocated")

	// ErrPortPoolExhausted means the host port range has no free port left.
	ErrPortPoolExhausted = errors.New("no available ports in host port pool")

	// ErrPortNotAllocated means a Release call named a host port outside
	// the pool's range.
	ErrPortNotAllocated = errors.New("host port is not currently allocated")

	// ErrEpairExhausted means no epair index was free within the scan bound.
	ErrEpairExhausted = errors.New("no available epair index")

	// ErrConflict is ConfigError::Conflict — a duplicate IP within a bridge,
	// or a duplicate (host_ip, host_port, proto) across jails.
	ErrConflict = errors.New("network plan conflict")
)
