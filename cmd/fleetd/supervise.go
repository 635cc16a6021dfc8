package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/jailstate"
)

func init() {
	superviseCmd := &cobra.Command{
		Use:   "supervise",
		Short: "run the health supervisor for every Running or Degraded jail until a shutdown signal arrives",
		Long: "supervise is fleetd's one long-running mode: every other subcommand does\n" +
			"its work and exits. It starts a check loop for every jail that is\n" +
			"currently Running or Degraded with healthchecks enabled and blocks until SIGINT or\n" +
			"SIGTERM, restarting jails through the same Orchestrator an operator\n" +
			"would drive by hand.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fc, err := loadContext(ctx, true)
			if err != nil {
				return err
			}
			defer fc.Close()

			started := 0
			for _, j := range fc.cfg.Jails {
				if j.Healthcheck == nil || !j.Healthcheck.Enabled {
					continue
				}
				rec, err := fc.records.Load(j.Name)
				if err != nil {
					log.WarnContext(ctx, "supervise: skipping jail, no runtime record", "jail", j.Name, "error", err)
					continue
				}
				if rec.State != jailstate.Running && rec.State != jailstate.Degraded {
					continue
				}
				fc.sup.Supervise(ctx, j.Name, j.Healthcheck.Checks)
				started++
			}

			log.InfoContext(ctx, "supervise: watching jails, waiting for shutdown signal", "jails", started)
			<-ctx.Done()
			log.InfoContext(ctx, "supervise: shutdown signal received, stopping checks")
			return nil
		},
	}
	rootCmd.AddCommand(superviseCmd)
}
