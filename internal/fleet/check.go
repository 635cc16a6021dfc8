package fleet

import (
	"fmt"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/netplan"
)

// Check validates the Fleet Config this Orchestrator was built with:
// per-jail shape, name uniqueness, dependency resolution, cycles, network
// conflicts, and path collisions between jails. It is pure — it never
// mutates anything — and safe to call any number of times.
func (o *Orchestrator) Check() error {
	seen := make(map[string]bool, len(o.fleet.Jails))
	for i := range o.fleet.Jails {
		j := &o.fleet.Jails[i]
		if err := j.ValidateShape(); err != nil {
			return err
		}
		if seen[j.Name] {
			return fmt.Errorf("%w: %s", config.ErrDuplicateName, j.Name)
		}
		seen[j.Name] = true
	}

	if _, err := o.buildGraph(); err != nil {
		return err
	}

	if err := netplan.DetectConflicts(o.fleet.Jails); err != nil {
		return err
	}

	return o.checkPaths()
}

// checkPaths rejects a Fleet Config where two Jail Specs resolve (either
// explicitly or by derivation) to the same filesystem root.
func (o *Orchestrator) checkPaths() error {
	resolved := make(map[string]string, len(o.fleet.Jails))
	for i := range o.fleet.Jails {
		j := &o.fleet.Jails[i]
		path := o.resolvePath(j)
		if owner, ok := resolved[path]; ok && owner != j.Name {
			return fmt.Errorf("%w: %s and %s both resolve to %s", config.ErrPathConflict, owner, j.Name, path)
		}
		resolved[path] = j.Name
	}
	return nil
}
