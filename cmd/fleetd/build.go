package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jailfleet/jailfleet/internal/build"
	"github.com/jailfleet/jailfleet/internal/fleet"
	"github.com/jailfleet/jailfleet/internal/store"
)

func init() {
	var (
		contextDir string
		jailfile   string
		tag        string
		buildArgs  []string
	)

	buildCmd := &cobra.Command{
		Use:   "build <jail>",
		Short: "run a Jailfile's build plan against a scratch jail, producing a new release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			jailName := args[0]

			fc, err := loadContext(ctx, false)
			if err != nil {
				return err
			}
			defer fc.Close()

			plan, err := build.LoadPlanFile(filepath.Join(contextDir, jailfile))
			if err != nil {
				return err
			}
			if tag == "" {
				tag = jailName
			}

			job, err := store.InsertBuildJob(ctx, fc.idx, jailName, tag)
			if err != nil {
				return err
			}
			if err := store.MarkBuildJobStarted(ctx, fc.idx, job.ID); err != nil {
				log.WarnContext(ctx, "mark build job started failed", "error", err)
			}

			result, err := fc.orch.Build(ctx, plan, tag, fleet.BuildOptions{
				ContextDir: contextDir,
				Args:       parseArgs(buildArgs),
			})
			if err != nil {
				if markErr := store.MarkBuildJobFailed(ctx, fc.idx, job.ID, err.Error()); markErr != nil {
					log.WarnContext(ctx, "mark build job failed failed", "error", markErr)
				}
				return err
			}

			if err := store.MarkBuildJobSucceeded(ctx, fc.idx, job.ID, result.Digest.String()); err != nil {
				log.WarnContext(ctx, "mark build job succeeded failed", "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "release %s built: %s\n", result.ReleaseTag, result.Digest)
			return nil
		},
	}
	buildCmd.Flags().StringVar(&contextDir, "context", ".", "directory holding the Jailfile and its copy sources")
	buildCmd.Flags().StringVar(&jailfile, "file", "Jailfile", "Jailfile name within --context")
	buildCmd.Flags().StringVar(&tag, "tag", "", "release tag to publish (defaults to the jail name)")
	buildCmd.Flags().StringArrayVar(&buildArgs, "arg", nil, "build arg in KEY=VALUE form, repeatable")
	rootCmd.AddCommand(buildCmd)
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
