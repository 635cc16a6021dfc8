package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/store"
)

func init() {
	psCmd := &cobra.Command{
		Use:   "ps",
		Short: "list every jail's last-known state from the sqlite index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			entries, err := store.ListJailIndex(ctx, fc.idx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATE\tRELEASE\tIP\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.State, e.Release, e.IPAddress, e.UpdatedAt.Format("2006-01-02T15:04:05"))
			}
			return w.Flush()
		},
	}
	rootCmd.AddCommand(psCmd)
}

// syncIndex mirrors every jail's current state/<name>.json into the
// sqlite index after a mutating operation, so `ps` doesn't have to open
// every record file to answer a listing.
func syncIndex(ctx context.Context, fc *fleetContext) {
	for _, j := range fc.cfg.Jails {
		rec, err := fc.records.Load(j.Name)
		if err != nil {
			if err := store.RemoveJailIndex(ctx, fc.idx, j.Name); err != nil {
				log.WarnContext(ctx, "index removal failed", "jail", j.Name, "error", err)
			}
			continue
		}
		ip := ""
		if j.Network != nil {
			ip = j.Network.IPv4
		}
		entry := store.JailIndexEntry{
			Name:      j.Name,
			State:     string(rec.State),
			Release:   j.Release,
			IPAddress: ip,
		}
		if err := store.UpsertJailIndex(ctx, fc.idx, entry); err != nil {
			log.WarnContext(ctx, "index upsert failed", "jail", j.Name, "error", err)
		}
	}
}
