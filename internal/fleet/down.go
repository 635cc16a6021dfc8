package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/jailstate"
	"github.com/jailfleet/jailfleet/internal/ledger"
	"github.com/jailfleet/jailfleet/internal/store"
)

// DownOptions parameterizes a Down call.
type DownOptions struct {
	All    bool
	DryRun bool
}

// Down resolves targets to their full transitive-dependent set (everything
// that would otherwise be left depending on a jail about to stop), then
// stops each jail in the reverse of its start order: pre_stop hooks, stop
// the jail instance, post_stop hooks, release every ledgered resource.
func (o *Orchestrator) Down(ctx context.Context, targets []string, opts DownOptions) (*Plan, error) {
	if err := o.Check(); err != nil {
		return nil, err
	}

	g, err := o.buildGraph()
	if err != nil {
		return nil, err
	}

	if opts.All {
		targets = o.fleet.Names()
	}

	set, err := o.expandDownSet(targets)
	if err != nil {
		return nil, err
	}

	order, err := filteredOrder(g, set, false)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return o.planDown(order), nil
	}

	errs := o.runByLevel(ctx, order, false, o.downOne)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrPartialFailure, errs)
	}
	return nil, nil
}

func (o *Orchestrator) planDown(order []string) *Plan {
	p := &Plan{}
	for _, name := range order {
		p.add(name, "run pre_stop hooks")
		p.add(name, "stop jail instance")
		p.add(name, "run post_stop hooks")
		p.add(name, "release ledgered resources")
	}
	return p
}

// expandDownSet returns targets plus every jail in the fleet that depends
// on one of them, directly or transitively — they must come down first.
func (o *Orchestrator) expandDownSet(targets []string) (map[string]bool, error) {
	set := make(map[string]bool, len(targets))
	for _, t := range targets {
		if o.fleet.JailByName(t) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownJail, t)
		}
		set[t] = true
	}

	for changed := true; changed; {
		changed = false
		for i := range o.fleet.Jails {
			j := &o.fleet.Jails[i]
			if set[j.Name] {
				continue
			}
			for _, dep := range j.DependsOn {
				if set[dep] {
					set[j.Name] = true
					changed = true
					break
				}
			}
		}
	}
	return set, nil
}

// downOne drives a single jail from Running/Degraded back to Stopped.
// Already-Stopped (or never-started) jails are a no-op; a Failed jail has
// nothing running to stop, so it's also treated as a no-op here — only
// `cleanup` moves a Failed jail anywhere.
func (o *Orchestrator) downOne(ctx context.Context, name string) error {
	lock := o.jailLock(name)
	lock.Lock()
	defer lock.Unlock()

	j := o.fleet.JailByName(name)
	rec, err := o.records.Load(name)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch rec.State {
	case jailstate.Stopped, jailstate.Failed:
		return nil
	case jailstate.Starting, jailstate.Stopping:
		return fmt.Errorf("%w: %s is mid-transition (%s)", jailstate.ErrIllegalTransition, name, rec.State)
	}

	if o.sup != nil {
		o.sup.Stop(name)
	}

	rec.State, err = jailstate.Transition(rec.State, jailstate.Stopping)
	if err != nil {
		return err
	}
	if err := o.records.Save(rec); err != nil {
		return err
	}

	if err := o.runHooks(ctx, j, config.PhasePreStop); err != nil {
		return o.failStopping(ctx, rec, err)
	}

	if err := o.host.StopJail(ctx, name); err != nil {
		return o.failStopping(ctx, rec, fmt.Errorf("stop jail instance: %w", err))
	}

	if err := o.runHooks(ctx, j, config.PhasePostStop); err != nil {
		o.log.WarnContext(ctx, "post_stop hook failed after jail already stopped", "jail", name, "error", err)
	}

	led := ledger.Load(name, rec.Ledger, o.undoers(), o.log)
	rollbackErr := led.Rollback(ctx)
	o.releaseNetwork(ctx, j)
	o.releasePorts(j)

	if rollbackErr != nil {
		rec.LastError = rollbackErr.Error()
		rec.State, _ = jailstate.Transition(jailstate.Stopping, jailstate.Failed)
		rec.Ledger = led.Entries()
		_ = o.records.Save(rec)
		return rollbackErr
	}

	rec.State = jailstate.Stopped
	rec.Ledger = nil
	rec.LastError = ""
	rec.HealthVerdict = ""
	return o.records.Save(rec)
}

// failStopping marks a jail Failed when a pre_stop hook or the stop call
// itself refuses to let the sequence continue — the Stopping->Failed edge
// for a "non-continuable release error".
func (o *Orchestrator) failStopping(ctx context.Context, rec *store.JailRecord, cause error) error {
	rec.LastError = cause.Error()
	rec.State, _ = jailstate.Transition(jailstate.Stopping, jailstate.Failed)
	if err := o.records.Save(rec); err != nil {
		o.log.ErrorContext(ctx, "failed to persist failed record", "jail", rec.Name, "error", err)
	}
	return cause
}
