package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "validate the fleet config without touching any host state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			if err := fc.orch.Check(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d jails, config OK\n", len(fc.cfg.Jails))
			return nil
		},
	}
	rootCmd.AddCommand(checkCmd)
}
