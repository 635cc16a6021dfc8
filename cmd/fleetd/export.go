package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/export"
	"github.com/jailfleet/jailfleet/internal/fleet"
)

func init() {
	var native bool

	exportCmd := &cobra.Command{
		Use:   "export <jail> <output-file>",
		Short: "write a jail's rootfs and spec snapshot to an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			jailName, outPath := args[0], args[1]

			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			j := fc.cfg.JailByName(jailName)
			if j == nil {
				return fmt.Errorf("%w: %s", fleet.ErrUnknownJail, jailName)
			}

			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()

			stor := fc.orch.Storage()
			if native && stor.SupportsCOW() {
				snap := fc.layout.JailRoot(jailName) + "@export"
				return export.ExportNative(stor, snap, out)
			}
			return export.Export(ctx, out, j, j.Release, fc.layout.JailRoot(jailName))
		},
	}
	exportCmd.Flags().BoolVar(&native, "native", false, "use the storage backend's native send stream instead of a portable tar")
	rootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import <input-file> <dest-dir>",
		Short: "extract an export archive's rootfs into dest-dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			inPath, destDir := args[0], args[1]

			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			in, err := os.Open(inPath)
			if err != nil {
				return err
			}
			defer in.Close()

			meta, err := export.Import(ctx, in, fc.orch.Storage(), destDir, destDir)
			if err != nil {
				return err
			}
			if meta != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (release %s)\n", meta.Name, meta.Release)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "imported native stream into %s\n", destDir)
			}
			return nil
		},
	}
	rootCmd.AddCommand(importCmd)
}
