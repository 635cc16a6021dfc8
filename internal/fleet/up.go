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

// UpOptions parameterizes an Up call.
type UpOptions struct {
	All    bool // expand targets to every jail in the fleet
	DryRun bool // produce a Plan instead of executing
}

// Up resolves targets to their full transitive-dependency start set via
// the dependency graph, then brings each jail through Stopped->Starting->
// Running in dependency order, running same-rank jails concurrently up to
// maxParallel. A DryRun call performs no side effects and returns the plan
// it would have executed instead.
func (o *Orchestrator) Up(ctx context.Context, targets []string, opts UpOptions) (*Plan, error) {
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

	set, err := o.expandUpSet(targets)
	if err != nil {
		return nil, err
	}

	order, err := filteredOrder(g, set, true)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return o.planUp(order), nil
	}

	errs := o.runByLevel(ctx, order, true, o.upOne)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrPartialFailure, errs)
	}
	return nil, nil
}

func (o *Orchestrator) planUp(order []string) *Plan {
	p := &Plan{}
	for _, name := range order {
		j := o.fleet.JailByName(name)
		p.add(name, "acquire network resources")
		p.add(name, "ensure base/clone dataset")
		p.add(name, "run pre_start hooks")
		p.add(name, "create and start jail instance")
		p.add(name, "run post_start hooks")
		if j.Healthcheck != nil && j.Healthcheck.Enabled {
			p.add(name, "register with health supervisor")
		}
	}
	return p
}

// expandUpSet returns targets plus every jail they transitively depend on.
func (o *Orchestrator) expandUpSet(targets []string) (map[string]bool, error) {
	set := make(map[string]bool)
	var walk func(name string) error
	walk = func(name string) error {
		if set[name] {
			return nil
		}
		j := o.fleet.JailByName(name)
		if j == nil {
			return fmt.Errorf("%w: %s", ErrUnknownJail, name)
		}
		set[name] = true
		for _, dep := range j.DependsOn {
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, t := range targets {
		if err := walk(t); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// upOne drives a single jail from Stopped to Running. Already-Running (or
// Degraded) jails are a no-op; a Failed jail refuses per the idempotence
// rule.
func (o *Orchestrator) upOne(ctx context.Context, name string) error {
	lock := o.jailLock(name)
	lock.Lock()
	defer lock.Unlock()

	j := o.fleet.JailByName(name)
	rec, err := o.loadOrNewRecord(name)
	if err != nil {
		return err
	}

	switch rec.State {
	case jailstate.Running, jailstate.Degraded:
		return nil
	case jailstate.Failed:
		return ErrRequiresCleanup
	case jailstate.Starting, jailstate.Stopping:
		return fmt.Errorf("%w: %s is mid-transition (%s)", jailstate.ErrIllegalTransition, name, rec.State)
	}

	rec.State, err = jailstate.Transition(rec.State, jailstate.Starting)
	if err != nil {
		return err
	}
	if err := o.records.Save(rec); err != nil {
		return err
	}

	led := ledger.New(name, o.undoers(), o.log)

	if err := o.startSteps(ctx, led, j); err != nil {
		return o.failStarting(ctx, led, j, rec, err)
	}

	rec.State = jailstate.Running
	rec.Ledger = led.Entries()
	rec.LastError = ""
	if err := o.records.Save(rec); err != nil {
		return err
	}

	if j.Healthcheck != nil && j.Healthcheck.Enabled && o.sup != nil {
		o.sup.Supervise(ctx, name, j.Healthcheck.Checks)
	}
	return nil
}

// startSteps runs the ordered side-effecting sequence an `up` names
// for `up`, appending to led as each step succeeds.
func (o *Orchestrator) startSteps(ctx context.Context, led *ledger.Ledger, j *config.JailSpec) error {
	netcfg, err := o.acquireNetwork(ctx, led, j)
	if err != nil {
		return fmt.Errorf("acquire network: %w", err)
	}

	if err := o.acquirePorts(ctx, led, j); err != nil {
		return fmt.Errorf("acquire ports: %w", err)
	}

	path, err := o.acquireDataset(led, j)
	if err != nil {
		return err
	}

	if err := o.runHooks(ctx, j, config.PhasePreStart); err != nil {
		return err
	}

	if err := o.host.CreateVNetJail(ctx, j.Name, path, j.Hostname, netcfg); err != nil {
		return fmt.Errorf("create jail instance: %w", err)
	}
	led.Append(ledger.KindJailInstance, j.Name)

	if err := o.runHooks(ctx, j, config.PhasePostStart); err != nil {
		return err
	}

	return nil
}

// failStarting rolls back everything led recorded, releases the
// non-ledgered network/port bookkeeping, and marks the jail Failed — the
// only legal destination from Starting once a required step has failed
// (jailstate's transition table has no Starting->Stopped edge).
func (o *Orchestrator) failStarting(ctx context.Context, led *ledger.Ledger, j *config.JailSpec, rec *store.JailRecord, cause error) error {
	rollbackErr := led.Rollback(ctx)
	o.releaseNetwork(ctx, j)
	o.releasePorts(j)

	rec.LastError = cause.Error()
	rec.State, _ = jailstate.Transition(jailstate.Starting, jailstate.Failed)
	rec.Ledger = led.Entries()

	if saveErr := o.records.Save(rec); saveErr != nil {
		o.log.ErrorContext(ctx, "failed to persist failed record", "jail", j.Name, "error", saveErr)
	}

	if rollbackErr != nil {
		return fmt.Errorf("%w (rollback incomplete: %v)", cause, rollbackErr)
	}
	return cause
}

// loadOrNewRecord returns name's persisted record, or a pristine Stopped
// one if none exists yet. A corrupt record refuses with its wrapped error
// rather than silently treating it as fresh.
func (o *Orchestrator) loadOrNewRecord(name string) (*store.JailRecord, error) {
	rec, err := o.records.Load(name)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		return &store.JailRecord{Name: name, State: jailstate.Stopped}, nil
	}
	return nil, err
}
