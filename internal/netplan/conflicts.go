package netplan

import (
	"fmt"

	"github.com/jailfleet/jailfleet/internal/config"
)

// DetectConflicts implements the two network-conflict rules: duplicate
// IPs within the same bridge, and duplicate
// (host_ip, host_port, proto) exposed-port bindings across the whole
// fleet. It's pure and stateless so both check() (config time) and the
// planner (plan time) can call it against the same Fleet Config.
func DetectConflicts(jails []config.JailSpec) error {
	type ipKey struct {
		bridge, ip string
	}
	seenIP := make(map[ipKey]string)

	type portKey struct {
		hostIP string
		port   int
		proto  config.Protocol
	}
	seenPort := make(map[portKey]string)

	for _, j := range jails {
		if j.Network != nil && j.Network.IPv4 != "" && j.Network.Bridge != "" {
			key := ipKey{bridge: j.Network.Bridge, ip: j.Network.IPv4}
			if owner, ok := seenIP[key]; ok && owner != j.Name {
				return fmt.Errorf("%w: %s already used on bridge %s by jail %s", ErrConflict, j.Network.IPv4, j.Network.Bridge, owner)
			}
			seenIP[key] = j.Name
		}

		for _, p := range j.ExposedPorts {
			key := portKey{hostIP: p.HostIP, port: p.HostPort, proto: p.Protocol}
			if owner, ok := seenPort[key]; ok && owner != j.Name {
				return fmt.Errorf("%w: %s:%d/%s already exposed by jail %s", ErrConflict, p.HostIP, p.HostPort, p.Protocol, owner)
			}
			seenPort[key] = j.Name
		}
	}

	return nil
}
