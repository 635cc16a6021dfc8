package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/fleet"
	"github.com/jailfleet/jailfleet/internal/graph"
	"github.com/jailfleet/jailfleet/internal/health"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
	"github.com/jailfleet/jailfleet/internal/netplan"
	"github.com/jailfleet/jailfleet/internal/storage"
	"github.com/jailfleet/jailfleet/internal/store"
)

var (
	configPath  string
	dataDir     string
	devNAT      bool
	maxParallel int

	log = slog.New(slog.NewJSONHandler(os.Stderr, nil))

	rootCmd = &cobra.Command{
		Use:           "fleetd",
		Short:         "drive a BSD jail fleet through its lifecycle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/usr/local/etc/jailfleet/fleet.yaml", "path to the fleet config document")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "/var/db/jailfleet", "root of the persisted-state layout")
	rootCmd.PersistentFlags().BoolVar(&devNAT, "dev-nat", false, "enable iptables MASQUERADE/FORWARD rules for bridges instead of relying on a real PF gateway")
	rootCmd.PersistentFlags().IntVar(&maxParallel, "max-parallel", 0, "cap same-rank concurrency (0 = default)")
}

// Execute runs the root command and maps its outcome to the exit codes
// fleetd's operators script against: 0 success, 1 user/config error, 2
// runtime/host error, 3 partial success (some independent jails failed,
// others didn't).
func Execute() int {
	err := rootCmd.Execute()
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, fleet.ErrPartialFailure) {
		return 3
	}
	if isUserError(err) {
		return 1
	}
	return 2
}

// isUserError reports whether err traces back to a malformed Fleet Config
// or an invalid CLI invocation rather than a host/runtime failure — the
// boundary the exit codes draw between exit 1 and exit 2.
func isUserError(err error) bool {
	sentinels := []error{
		config.ErrInvalidName,
		config.ErrDuplicateName,
		config.ErrUnknownDependency,
		config.ErrPathConflict,
		config.ErrInvalidCheck,
		config.ErrInvalidHook,
		config.ErrInvalidPort,
		graph.ErrCycle,
		graph.ErrUnknownNode,
		netplan.ErrConflict,
		fleet.ErrUnknownJail,
		fleet.ErrNotCleanable,
		storage.ErrUnsupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// fleetContext bundles every collaborator a subcommand needs. Built fresh
// per invocation from the --config/--data-dir flags rather than cached,
// mirroring the Orchestrator's own "rebuild, don't cache" posture toward
// the Fleet Config.
type fleetContext struct {
	cfg     *config.Fleet
	orch    *fleet.Orchestrator
	sup     *health.Supervisor
	idx     *sql.DB
	layout  *store.Layout
	records *store.Records
}

func (fc *fleetContext) Close() {
	if fc.sup != nil {
		for _, j := range fc.cfg.Jails {
			fc.sup.Stop(j.Name)
		}
	}
	if fc.idx != nil {
		fc.idx.Close()
	}
}

// loadContext reads the Fleet Config, prepares the persisted-state layout
// and sqlite index, and wires a real Orchestrator against the host's
// actual jail/zfs/pf tooling. withHealth also wires a health Supervisor,
// which up and supervise then hand each healthchecked jail to — callers
// that only check()/build() don't need one.
func loadContext(ctx context.Context, withHealth bool) (*fleetContext, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open config: %v", config.ErrInvalidName, err)
	}
	defer f.Close()

	cfg, err := config.Load(f)
	if err != nil {
		return nil, err
	}
	if cfg.Global.DataDir != "" {
		dataDir = cfg.Global.DataDir
	}

	layout, err := store.NewLayout(dataDir)
	if err != nil {
		return nil, err
	}
	records := store.NewRecords(layout)

	idx, err := store.OpenIndex(ctx, layout.DataDir+"/fleet.db")
	if err != nil {
		return nil, err
	}

	host := hostadapter.New(log)

	var stor storage.Adapter
	switch cfg.Global.StorageBackend {
	case config.BackendPlain:
		stor = storage.NewPlain()
	default:
		stor = storage.NewCOW(log)
	}

	// orch doesn't exist yet when the Supervisor needs a restart callback
	// (Supervisor -> restart -> Orchestrator, Orchestrator -> Supervisor ->
	// Stop), so the closure captures the variable, not a value; by the
	// time health.Supervise ever calls it, orch below has been assigned.
	var orch *fleet.Orchestrator
	restartFn := func(ctx context.Context, jailName string) error {
		return orch.Restart(ctx, []string{jailName})
	}

	var sup *health.Supervisor
	if withHealth {
		sup = health.NewSupervisor(host, restartFn, indexEventFunc(idx), log)
	}

	bridges := netplan.NewBridgePools()
	ports, err := netplan.NewHostPortPool(1, 65535)
	if err != nil {
		return nil, err
	}

	orch = fleet.NewOrchestrator(cfg, host, stor, layout, records, sup, bridges, ports, nil, maxParallel, log)

	if devNAT {
		for _, j := range cfg.Jails {
			if j.Network == nil || j.Network.Bridge == "" || j.Network.Gateway == "" {
				continue
			}
			if err := hostadapter.EnableDevNAT(j.Network.Bridge, j.Network.Gateway+"/24"); err != nil {
				log.WarnContext(ctx, "dev-nat setup failed", "bridge", j.Network.Bridge, "error", err)
			}
		}
	}

	return &fleetContext{cfg: cfg, orch: orch, sup: sup, idx: idx, layout: layout, records: records}, nil
}

func indexEventFunc(idx *sql.DB) health.EventFunc {
	return func(jailName, event, detail string) {
		log.Info("health event", "jail", jailName, "event", event, "detail", detail)
	}
}
