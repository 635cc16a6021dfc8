package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jailfleet/jailfleet/internal/jailstate"
	"github.com/jailfleet/jailfleet/internal/ledger"
	"github.com/jailfleet/jailfleet/internal/store"
)

// Cleanup forces a full ledger undo for a jail stuck in Failed, or tidies
// an orphaned Stopped record. With force, unknown or
// already-gone resources are ignored rather than treated as undo failures,
// and a corrupt state file is reset instead of refused.
func (o *Orchestrator) Cleanup(ctx context.Context, name string, force bool) error {
	lock := o.jailLock(name)
	lock.Lock()
	defer lock.Unlock()

	rec, err := o.records.Load(name)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil
	}
	if errors.Is(err, store.ErrRecordCorrupt) {
		if !force {
			return err
		}
		return o.records.ForceReset(name)
	}
	if err != nil {
		return err
	}

	if rec.State != jailstate.Failed && rec.State != jailstate.Stopped {
		return fmt.Errorf("%w: %s is %s", ErrNotCleanable, name, rec.State)
	}

	led := ledger.Load(name, rec.Ledger, o.undoersForce(force), o.log)
	if err := led.Rollback(ctx); err != nil {
		if !force {
			return err
		}
		o.log.WarnContext(ctx, "cleanup --force proceeding despite rollback failure", "jail", name, "error", err)
	}

	if j := o.fleet.JailByName(name); j != nil {
		o.releaseNetwork(ctx, j)
		o.releasePorts(j)
	}
	if o.sup != nil {
		o.sup.Stop(name)
	}

	if rec.State == jailstate.Failed {
		if _, err := jailstate.Transition(jailstate.Failed, jailstate.Stopped); err != nil {
			return err
		}
	}

	return o.records.Delete(name)
}

// undoersForce wraps the ordinary undoers to always pass force=true and to
// log-and-swallow any error they still return, the behavior `cleanup
// --force` promises for unknown or already-gone resources.
func (o *Orchestrator) undoersForce(force bool) map[ledger.Kind]ledger.UndoFunc {
	base := o.undoers()
	if !force {
		return base
	}

	wrapped := make(map[ledger.Kind]ledger.UndoFunc, len(base))
	for kind, fn := range base {
		kind, fn := kind, fn
		wrapped[kind] = func(ctx context.Context, identifier string, _ bool) error {
			if err := fn(ctx, identifier, true); err != nil {
				o.log.WarnContext(ctx, "cleanup --force ignoring undo error", "kind", kind, "identifier", identifier, "error", err)
			}
			return nil
		}
	}
	return wrapped
}
