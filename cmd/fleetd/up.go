package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/fleet"
)

func init() {
	var all, dryRun bool

	upCmd := &cobra.Command{
		Use:   "up [jail...]",
		Short: "bring jails and their dependencies to Running",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, true)
			if err != nil {
				return err
			}
			defer fc.Close()

			plan, err := fc.orch.Up(ctx, args, fleet.UpOptions{All: all, DryRun: dryRun})
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
	upCmd.Flags().BoolVar(&all, "all", false, "target every jail in the fleet")
	upCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without executing it")
	rootCmd.AddCommand(upCmd)
}

func printPlan(cmd *cobra.Command, plan *fleet.Plan) {
	for _, step := range plan.Steps {
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", step.Action, step.Jail)
	}
}
