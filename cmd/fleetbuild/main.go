// Command fleetbuild runs one Jailfile's build plan against a scratch
// jail and freezes the result into a named release, independent of any
// running fleet — the build-planner equivalent of a `docker build`
// invocation that never touches a compose file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/build"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
	"github.com/jailfleet/jailfleet/internal/lock"
	"github.com/jailfleet/jailfleet/internal/storage"
	"github.com/jailfleet/jailfleet/internal/store"
)

func main() {
	var (
		contextDir string
		jailfile   string
		tag        string
		dataDir    string
		plain      bool
		buildArgs  []string
	)

	root := &cobra.Command{
		Use:           "fleetbuild",
		Short:         "build a release from a Jailfile against a scratch jail",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

			layout, err := store.NewLayout(dataDir)
			if err != nil {
				return err
			}

			// Unlike internal/fleet.Orchestrator.Build, which refuses a
			// plain backend outright since a fleet-managed build is
			// always rooted at a clone, fleetbuild is a standalone tool
			// and may legitimately run against --plain: Executor.Execute
			// falls back to a copy-tree for a jail with no snapshot
			// history to clone from.
			var stor storage.Adapter
			if plain {
				stor = storage.NewPlain()
			} else {
				stor = storage.NewCOW(log)
			}

			plan, err := build.LoadPlanFile(filepath.Join(contextDir, jailfile))
			if err != nil {
				return err
			}
			if tag == "" {
				tag = filepath.Base(contextDir)
			}

			exec := build.NewExecutor(hostadapter.New(log), stor, lock.NewMemLocker(), layout, nil, nil, log)
			result, err := exec.Execute(ctx, plan, build.Options{
				ContextDir: contextDir,
				ReleaseTag: tag,
				Args:       parseArgs(buildArgs),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "release %s built: %s (%s)\n", result.ReleaseTag, result.Digest, result.ReleasePath)
			return nil
		},
	}
	root.Flags().StringVar(&contextDir, "context", ".", "directory holding the Jailfile and its copy sources")
	root.Flags().StringVar(&jailfile, "file", "Jailfile", "Jailfile name within --context")
	root.Flags().StringVar(&tag, "tag", "", "release tag to publish (defaults to the context directory's base name)")
	root.Flags().StringVar(&dataDir, "data-dir", "/var/db/jailfleet", "root of the persisted-state layout")
	root.Flags().BoolVar(&plain, "plain", false, "use the directory-copy storage backend instead of zfs")
	root.Flags().StringArrayVar(&buildArgs, "arg", nil, "build arg in KEY=VALUE form, repeatable")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseArgs(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
