package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func init() {
	var force bool

	cleanupCmd := &cobra.Command{
		Use:   "cleanup <jail...>",
		Short: "release a Failed or orphaned jail's ledgered resources and drop its record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			var errs []error
			for _, name := range args {
				if err := fc.orch.Cleanup(ctx, name, force); err != nil {
					log.ErrorContext(ctx, "cleanup failed", "jail", name, "error", err)
					errs = append(errs, err)
				}
			}
			syncIndex(ctx, fc)
			return errors.Join(errs...)
		},
	}
	cleanupCmd.Flags().BoolVar(&force, "force", false, "ignore undo failures and a corrupt record")
	rootCmd.AddCommand(cleanupCmd)
}
