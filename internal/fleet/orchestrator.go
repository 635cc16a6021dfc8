// Package fleet implements the Lifecycle Orchestrator: the component that
// drives the dependency graph, jail state machine, resource ledger, host
// adapter, storage adapter, and network planner together to realize `up`,
// `down`, `restart`, `cleanup`, `check`, and `build` against a Fleet
// Config.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/graph"
	"github.com/jailfleet/jailfleet/internal/health"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
	"github.com/jailfleet/jailfleet/internal/ledger"
	"github.com/jailfleet/jailfleet/internal/lock"
	"github.com/jailfleet/jailfleet/internal/netplan"
	"github.com/jailfleet/jailfleet/internal/storage"
	"github.com/jailfleet/jailfleet/internal/store"
)

// defaultMaxParallel bounds same-rank concurrency when the caller doesn't
// override it, per the "capped" default.
const defaultMaxParallel = 8

// Orchestrator wires every collaborator a lifecycle operation needs. One
// Orchestrator is built per Fleet Config; the dependency graph is rebuilt
// from that config on every call rather than cached.
type Orchestrator struct {
	fleet   *config.Fleet
	host    hostadapter.HostAdapter
	stor    storage.Adapter
	layout  *store.Layout
	records *store.Records
	sup     *health.Supervisor
	bridges *netplan.BridgePools
	ports   *netplan.HostPortPool
	locker  lock.Locker

	maxParallel int
	log         *slog.Logger

	jailLocksMu sync.Mutex
	jailLocks   map[string]*sync.Mutex
}

// NewOrchestrator wires an Orchestrator for fleet. sup and ports may be nil
// for callers that only need check()/build() (e.g. `fleetbuild`'s one-shot
// use); bridges defaults to an empty registry and locker to a process-local
// lock.NewMemLocker if nil. A zero maxParallel falls back to
// defaultMaxParallel.
func NewOrchestrator(fleet *config.Fleet, host hostadapter.HostAdapter, stor storage.Adapter, layout *store.Layout, records *store.Records, sup *health.Supervisor, bridges *netplan.BridgePools, ports *netplan.HostPortPool, locker lock.Locker, maxParallel int, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if bridges == nil {
		bridges = netplan.NewBridgePools()
	}
	if locker == nil {
		locker = lock.NewMemLocker()
	}
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &Orchestrator{
		fleet:       fleet,
		host:        host,
		stor:        stor,
		layout:      layout,
		records:     records,
		sup:         sup,
		bridges:     bridges,
		ports:       ports,
		locker:      locker,
		maxParallel: maxParallel,
		log:         log,
		jailLocks:   make(map[string]*sync.Mutex),
	}
}

// Storage returns the Storage Adapter the Orchestrator was wired with, so
// a caller doing its own export/import (internal/export) can drive the
// same backend rather than constructing a second one.
func (o *Orchestrator) Storage() storage.Adapter { return o.stor }

// jailLock returns the serialization mutex for name, creating it on first
// use. Every lifecycle call on a given jail holds this for its duration so
// a racing up/down/restart/cleanup on the same name can't interleave.
func (o *Orchestrator) jailLock(name string) *sync.Mutex {
	o.jailLocksMu.Lock()
	defer o.jailLocksMu.Unlock()
	m, ok := o.jailLocks[name]
	if !ok {
		m = &sync.Mutex{}
		o.jailLocks[name] = m
	}
	return m
}

// buildGraph recomputes the dependency graph from the Fleet Config,
// rejecting an unresolved depends_on entry or a cycle before returning.
func (o *Orchestrator) buildGraph() (*graph.Graph, error) {
	g := graph.New(o.fleet.Names())
	for _, j := range o.fleet.Jails {
		for _, dep := range j.DependsOn {
			if o.fleet.JailByName(dep) == nil {
				return nil, fmt.Errorf("%w: %s depends on %s", config.ErrUnknownDependency, j.Name, dep)
			}
			if err := g.AddDependency(j.Name, dep); err != nil {
				return nil, err
			}
		}
	}
	if cyc := g.DetectCycle(); cyc != nil {
		return nil, fmt.Errorf("%w: %v", graph.ErrCycle, cyc)
	}
	return g, nil
}

// resolvePath returns the filesystem root a jail's dataset/directory lives
// at: its explicit Path if set, otherwise the path derived from the data
// directory layout.
func (o *Orchestrator) resolvePath(j *config.JailSpec) string {
	if j.Path != "" {
		return j.Path
	}
	return o.layout.JailRoot(j.Name)
}

// levels assigns every name in order a rank equal to one more than the
// deepest dependency already ranked, so same-rank jails share no edge and
// can run concurrently. order must already be a valid topological
// linearization of the subset these names form.
func (o *Orchestrator) levels(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	inOrder := make(map[string]bool, len(order))
	for _, n := range order {
		inOrder[n] = true
	}
	for _, n := range order {
		max := -1
		j := o.fleet.JailByName(n)
		for _, dep := range j.DependsOn {
			if !inOrder[dep] {
				continue
			}
			if r, ok := rank[dep]; ok && r > max {
				max = r
			}
		}
		rank[n] = max + 1
	}
	return rank
}

// runByLevel groups order into rank batches (ascending if ascending is
// true, descending otherwise) and runs fn concurrently within each batch,
// bounded by maxParallel. It stops issuing further batches as soon as a
// batch produces any error — jails already committed in prior batches stay
// exactly as fn left them, matching the rule that "a single jail's failure
// aborts the sequence; already-started jails remain running".
func (o *Orchestrator) runByLevel(ctx context.Context, order []string, ascending bool, fn func(ctx context.Context, name string) error) []error {
	// levels needs a start-ordered list; a stop order is the reverse of
	// one, so rank it in start direction before grouping.
	rankOrder := order
	if !ascending {
		rankOrder = make([]string, len(order))
		for i, n := range order {
			rankOrder[len(order)-1-i] = n
		}
	}
	rank := o.levels(rankOrder)

	maxRank := 0
	for _, r := range rank {
		if r > maxRank {
			maxRank = r
		}
	}

	batches := make([][]string, maxRank+1)
	for _, n := range order {
		batches[rank[n]] = append(batches[rank[n]], n)
	}

	if !ascending {
		for i, j := 0, len(batches)-1; i < j; i, j = i+1, j-1 {
			batches[i], batches[j] = batches[j], batches[i]
		}
	}

	var all []error
	for _, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		errs := o.runConcurrent(ctx, batch, fn)
		all = append(all, errs...)
		if len(errs) > 0 {
			break
		}
	}
	return all
}

// runConcurrent runs fn over names with at most maxParallel in flight at
// once, waiting for every one to finish before returning.
func (o *Orchestrator) runConcurrent(ctx context.Context, names []string, fn func(ctx context.Context, name string) error) []error {
	sem := make(chan struct{}, o.maxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, name := range names {
		wg.Add(1)
		sem <- struct{}{}
		go func(name string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(ctx, name); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()
	return errs
}

// undoers wires the Resource Ledger's per-kind undo actions to this
// orchestrator's host and storage adapters, covering every kind a jail's
// `up` can acquire (minus `mount`, which nothing in
// this design ever appends — no Jail Spec field names an explicit bind
// mount for the orchestrator to own).
func (o *Orchestrator) undoers() map[ledger.Kind]ledger.UndoFunc {
	return map[ledger.Kind]ledger.UndoFunc{
		ledger.KindDataset: func(ctx context.Context, identifier string, force bool) error {
			return o.stor.Destroy(identifier, force)
		},
		ledger.KindClone: func(ctx context.Context, identifier string, force bool) error {
			return o.stor.Destroy(identifier, force)
		},
		ledger.KindInterfacePair: func(ctx context.Context, identifier string, force bool) error {
			return o.host.DestroyInterface(ctx, identifier)
		},
		ledger.KindBridgeMember: func(ctx context.Context, identifier string, force bool) error {
			return o.host.DestroyInterface(ctx, identifier)
		},
		ledger.KindPFAnchorRule: func(ctx context.Context, identifier string, force bool) error {
			jailName := strings.SplitN(identifier, "/", 2)[0]
			return o.rebuildAnchor(ctx, jailName, false)
		},
		ledger.KindJailInstance: func(ctx context.Context, identifier string, force bool) error {
			exists, err := o.host.JailExists(ctx, identifier)
			if err != nil {
				if force {
					return nil
				}
				return err
			}
			if !exists {
				return nil
			}
			return o.host.StopJail(ctx, identifier)
		},
	}
}
