package fleet

import (
	"context"
	"fmt"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/ledger"
	"github.com/jailfleet/jailfleet/internal/netplan"
)

// acquirePorts reserves every exposed-port binding j declares from the
// fleet-wide host port pool, appends one pf-anchor-rule ledger entry per
// port, and rewrites the PF anchor to include j's rules. A jail with no
// exposed ports is a no-op. o.ports may be nil when this Orchestrator was
// built for check()/build()-only use; that's treated as "no port pool
// configured" and skipped rather than erroring.
func (o *Orchestrator) acquirePorts(ctx context.Context, led *ledger.Ledger, j *config.JailSpec) error {
	if len(j.ExposedPorts) == 0 {
		return nil
	}
	if o.ports == nil {
		return nil
	}

	jailIP := ""
	if j.Network != nil {
		jailIP = j.Network.IPv4
	}

	for _, p := range j.ExposedPorts {
		if err := o.ports.Reserve(p.HostPort, j.Name); err != nil {
			return fmt.Errorf("reserve host port %d: %w", p.HostPort, err)
		}
		rule := netplan.BuildRule(j.Name, p, jailIP)
		led.Append(ledger.KindPFAnchorRule, rule.ID)
	}

	return o.rebuildAnchor(ctx, j.Name, true)
}

// releasePorts returns j's host port reservations to the pool. Anchor
// rewrite and pf-anchor-rule ledger undo happen through the ledger's own
// rollback/down path, not here.
func (o *Orchestrator) releasePorts(j *config.JailSpec) {
	if o.ports == nil {
		return
	}
	for _, p := range j.ExposedPorts {
		_ = o.ports.Release(p.HostPort, j.Name)
	}
}
