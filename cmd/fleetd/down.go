package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/fleet"
)

func init() {
	var all, dryRun bool

	downCmd := &cobra.Command{
		Use:   "down [jail...]",
		Short: "stop jails and everything that depends on them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			plan, err := fc.orch.Down(ctx, args, fleet.DownOptions{All: all, DryRun: dryRun})
			if plan != nil {
				printPlan(cmd, plan)
			}
			if err != nil {
				return err
			}
			syncIndex(ctx, fc)
			return nil
		},
	}
	downCmd.Flags().BoolVar(&all, "all", false, "target every jail in the fleet")
	downCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without executing it")
	rootCmd.AddCommand(downCmd)
}
