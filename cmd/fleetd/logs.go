package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/logtail"
)

func init() {
	var idleTimeout time.Duration

	logsCmd := &cobra.Command{
		Use:   "logs <jail>",
		Short: "follow a jail's console log until it goes quiet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			return logtail.PollUntilIdle(fc.layout.LogFile(args[0]), cmd.OutOrStdout(), idleTimeout, 200*time.Millisecond)
		},
	}
	logsCmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 2*time.Second, "stop following once no new lines appear for this long")
	rootCmd.AddCommand(logsCmd)
}
