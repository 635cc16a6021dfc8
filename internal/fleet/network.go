package fleet

import (
	"context"
	"fmt"
	"strings"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
	"github.com/jailfleet/jailfleet/internal/jailstate"
	"github.com/jailfleet/jailfleet/internal/ledger"
	"github.com/jailfleet/jailfleet/internal/netplan"
)

// acquireNetwork implements the "acquire network resources" step of up:
// bridge, epair, bridge membership, and address/MAC assignment, each
// appended to led as it succeeds. Returns nil, nil for a jail with no
// Network record.
func (o *Orchestrator) acquireNetwork(ctx context.Context, led *ledger.Ledger, j *config.JailSpec) (*hostadapter.NetConfig, error) {
	net := j.Network
	if net == nil {
		return nil, nil
	}

	if err := o.host.CreateBridge(ctx, net.Bridge); err != nil {
		return nil, fmt.Errorf("create bridge %s: %w", net.Bridge, err)
	}

	a, b, err := o.host.CreateEpair(ctx)
	if err != nil {
		return nil, fmt.Errorf("create epair: %w", err)
	}
	led.Append(ledger.KindInterfacePair, a)

	if err := o.host.AttachToBridge(ctx, net.Bridge, a); err != nil {
		return nil, fmt.Errorf("attach %s to bridge %s: %w", a, net.Bridge, err)
	}
	led.Append(ledger.KindBridgeMember, a)

	mac := net.MAC
	if mac == "" {
		mac = netplan.GenerateMAC(j.Name, net.Bridge)
	}

	if net.IPv4 != "" {
		if err := o.reserveIP(net, j.Name); err != nil {
			return nil, err
		}
		if err := o.host.SetIPv4(ctx, b, net.IPv4, net.Gateway); err != nil {
			return nil, fmt.Errorf("set address on %s: %w", b, err)
		}
	}
	if err := o.host.SetMAC(ctx, b, mac); err != nil {
		return nil, fmt.Errorf("set mac on %s: %w", b, err)
	}

	return &hostadapter.NetConfig{
		VNet:    net.VNet,
		Bridge:  net.Bridge,
		Epair:   b,
		IPv4:    net.IPv4,
		Gateway: net.Gateway,
		MAC:     mac,
	}, nil
}

// reserveIP claims net.IPv4 from the bridge's address pool, registering the
// pool with a /24 range derived from the address itself the first time this
// bridge is seen. The pool exists to catch a runtime double-booking the
// static check() pass wouldn't see — e.g. a jail added after the fleet was
// already up.
func (o *Orchestrator) reserveIP(net *config.Network, jailName string) error {
	start, end, ok := subnet24(net.IPv4)
	if !ok {
		return fmt.Errorf("jail %s: %q is not a usable IPv4 address", jailName, net.IPv4)
	}
	pool, err := o.bridges.EnsureBridge(net.Bridge, start, end)
	if err != nil {
		return err
	}
	return pool.Reserve(net.IPv4, jailName)
}

// releaseNetwork returns a jail's allocated address to its bridge pool.
// Interface teardown and the PF anchor rewrite happen through the
// ledger's own undo path, not here.
func (o *Orchestrator) releaseNetwork(ctx context.Context, j *config.JailSpec) {
	if j.Network == nil || j.Network.IPv4 == "" {
		return
	}
	if pool := o.bridges.Pool(j.Network.Bridge); pool != nil {
		if err := pool.Release(j.Network.IPv4, j.Name); err != nil {
			o.log.WarnContext(ctx, "release ip failed", "jail", j.Name, "ip", j.Network.IPv4, "error", err)
		}
	}
}

// subnet24 derives a.b.c.1-a.b.c.254 from an IPv4 dotted address.
func subnet24(ip string) (start, end string, ok bool) {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "", "", false
	}
	prefix := strings.Join(parts[:3], ".")
	return prefix + ".1", prefix + ".254", true
}

// rebuildAnchor re-renders the fleet's single PF anchor from every jail
// whose Jail Runtime Record is currently in an active-ish state, plus
// jailName forced to include (during up, before its own record reflects
// the new state yet) or exclude (during down, after release). It is called
// once per up/down per jail, matching the "a single top-level
// anchor" being rewritten as a whole each time membership changes.
func (o *Orchestrator) rebuildAnchor(ctx context.Context, jailName string, include bool) error {
	var rules []netplan.AnchorRule
	for i := range o.fleet.Jails {
		j := &o.fleet.Jails[i]
		if j.Network == nil || len(j.ExposedPorts) == 0 {
			continue
		}

		active := include
		if j.Name != jailName {
			rec, err := o.records.Load(j.Name)
			active = err == nil && isActiveState(rec.State)
		}
		if !active {
			continue
		}

		for _, p := range j.ExposedPorts {
			rules = append(rules, netplan.BuildRule(j.Name, p, j.Network.IPv4))
		}
	}

	body := netplan.RenderAnchor(rules)
	if err := o.host.PFAnchorLoad(ctx, netplan.AnchorName, body); err != nil {
		return fmt.Errorf("load pf anchor: %w", err)
	}
	return o.layout.WriteAnchorConf(body)
}

func isActiveState(s jailstate.State) bool {
	switch s {
	case jailstate.Starting, jailstate.Running, jailstate.Degraded:
		return true
	default:
		return false
	}
}
