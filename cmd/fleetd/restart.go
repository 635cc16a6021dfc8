package main

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	restartCmd := &cobra.Command{
		Use:   "restart <jail...>",
		Short: "stop then start the named jails, in place",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, true)
			if err != nil {
				return err
			}
			defer fc.Close()

			if err := fc.orch.Restart(ctx, args); err != nil {
				return err
			}
			syncIndex(ctx, fc)
			return nil
		},
	}
	rootCmd.AddCommand(restartCmd)
}
