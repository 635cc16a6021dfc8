package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cloneCmd := &cobra.Command{
		Use:   "clone <jail@snapshot> <name>",
		Short: "materialize a new dataset cloned from an existing jail's snapshot",
		Long: "clone takes a source reference of the form jail@snapshot and a name\n" +
			"for the new dataset. It only creates the dataset; add a Jail Spec\n" +
			"naming it in the fleet config before `up` will bring it Running.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcJail, snapName, ok := strings.Cut(args[0], "@")
			if !ok {
				return fmt.Errorf("source must be of the form jail@snapshot, got %q", args[0])
			}

			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			dst, err := fc.orch.Clone(srcJail, snapName, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		},
	}
	rootCmd.AddCommand(cloneCmd)
}
