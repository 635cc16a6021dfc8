package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "create, list, and delete dataset snapshots of a jail",
	}

	createCmd := &cobra.Command{
		Use:   "create <jail> <name>",
		Short: "snapshot a jail's dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			snap, err := fc.orch.Snapshot(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <jail>",
		Short: "list a jail's dataset snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			names, err := fc.orch.ListSnapshots(args[0])
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <jail> <name>",
		Short: "destroy one of a jail's dataset snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			return fc.orch.DeleteSnapshot(args[0], args[1])
		},
	}

	snapshotCmd.AddCommand(createCmd, listCmd, deleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}
