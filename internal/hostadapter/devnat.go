package hostadapter

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"
)

// EnableDevNAT sets up MASQUERADE/FORWARD rules for a bridge's subnet. It
// exists for running the fleet against a Linux development host where
// there's no real PF to route egress traffic for jails — cmd/fleetd wires
// this in behind a --dev-nat flag, never in the PF-anchor code path that
// handles actual exposed-port forwarding.
func EnableDevNAT(bridge, cidr string) error {
	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("initialize iptables: %w", err)
	}

	if err := ipt.AppendUnique("nat", "POSTROUTING", "-s", cidr, "-j", "MASQUERADE"); err != nil {
		return fmt.Errorf("add masquerade rule: %w", err)
	}
	if err := ipt.AppendUnique("filter", "FORWARD", "-i", bridge, "-j", "ACCEPT"); err != nil {
		return fmt.Errorf("add forward-in rule: %w", err)
	}
	if err := ipt.AppendUnique("filter", "FORWARD", "-o", bridge, "-j", "ACCEPT"); err != nil {
		return fmt.Errorf("add forward-out rule: %w", err)
	}
	return nil
}

// DisableDevNAT tears down the rules EnableDevNAT added.
func DisableDevNAT(bridge, cidr string) error {
	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("initialize iptables: %w", err)
	}
	_ = ipt.Delete("nat", "POSTROUTING", "-s", cidr, "-j", "MASQUERADE")
	_ = ipt.Delete("filter", "FORWARD", "-i", bridge, "-j", "ACCEPT")
	_ = ipt.Delete("filter", "FORWARD", "-o", bridge, "-j", "ACCEPT")
	return nil
}
