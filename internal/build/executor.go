package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/jailfleet/jailfleet/internal/hostadapter"
	"github.com/jailfleet/jailfleet/internal/ledger"
	"github.com/jailfleet/jailfleet/internal/lock"
	"github.com/jailfleet/jailfleet/internal/ociimage"
	"github.com/jailfleet/jailfleet/internal/storage"
	"github.com/jailfleet/jailfleet/internal/store"
)

// Executor runs a BuildPlan against a scratch jail, rolling back on any
// step failure and, on success, freezing the result into a named release
// snapshot a Jail Spec can reference.
type Executor struct {
	host      hostadapter.HostAdapter
	stor      storage.Adapter
	locker    lock.Locker
	layout    *store.Layout
	images    ociimage.Source    // nil if base releases are always pre-fetched
	flattener ociimage.Flattener // nil if images is nil
	log       *slog.Logger
}

// NewExecutor wires the collaborators an Execute call needs. images and
// flattener may both be nil when every base release is already present
// under layout.ReleasesDir() (the common case once a fleet has bootstrapped
// its first release).
func NewExecutor(host hostadapter.HostAdapter, stor storage.Adapter, locker lock.Locker, layout *store.Layout, images ociimage.Source, flattener ociimage.Flattener, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{host: host, stor: stor, locker: locker, layout: layout, images: images, flattener: flattener, log: log}
}

// Options parameterizes one Execute call.
type Options struct {
	ContextDir string            // build context directory the Copy sources resolve against
	ReleaseTag string            // name the resulting snapshot is registered under
	Args       map[string]string // user-supplied build args, take precedence over declared defaults
}

// Result is what a successful build produces.
type Result struct {
	ReleaseTag   string
	ReleasePath  string
	Digest       digest.Digest
	Metadata     map[string]string
	ExposedPorts []ExposeSpec
	Cmd          string
	Entrypoint   string
	User         string
}

// Execute runs plan to completion or rolls back. Once created, the scratch
// jail is stopped whether the build succeeds or fails. On failure its
// ledgered dataset or clone is rolled back. On success a plain backend's
// scratch tree is renamed into the release directory, and a COW backend's
// scratch dataset stays in place as the origin of the published release
// clone.
func (e *Executor) Execute(ctx context.Context, plan *BuildPlan, opts Options) (*Result, error) {
	if plan.BaseRelease == "" {
		return nil, ErrNoBaseRelease
	}

	baseDigest := digest.FromString(plan.BaseRelease)
	l, err := e.locker.AcquireLock(ctx, baseDigest)
	if err != nil {
		return nil, fmt.Errorf("acquire build lock for %s: %w", plan.BaseRelease, err)
	}
	defer l.Release()

	baseDir := e.layout.ReleaseDir(plan.BaseRelease)
	if err := e.ensureBaseRelease(ctx, plan.BaseRelease, baseDir); err != nil {
		return nil, err
	}

	scratchName := "build-" + uuid.NewString()[:8]
	scratchPath := e.layout.JailRoot(scratchName)
	e.log.InfoContext(ctx, "starting build", "jail", scratchName, "base", plan.BaseRelease, "release_tag", opts.ReleaseTag)

	led := ledger.New(scratchName, e.undoers(), e.log)

	if err := e.materializeScratch(baseDir, scratchPath, led); err != nil {
		return nil, fmt.Errorf("materialize scratch jail: %w", err)
	}

	if err := e.host.CreateVNetJail(ctx, scratchName, scratchPath, scratchName, nil); err != nil {
		e.rollback(ctx, led)
		return nil, fmt.Errorf("create scratch jail: %w", err)
	}
	led.Append(ledger.KindJailInstance, scratchName)

	buildCtx := NewContext(opts.ContextDir, scratchPath, scratchName)
	for _, arg := range plan.DeclaredArgs {
		if v, ok := opts.Args[arg.Name]; ok {
			buildCtx.SetArg(arg.Name, v)
		} else if arg.HasDefault {
			buildCtx.SetArg(arg.Name, arg.Default)
		}
	}

	if err := e.runSteps(ctx, plan, buildCtx, scratchName); err != nil {
		_ = e.host.StopJail(ctx, scratchName)
		e.rollback(ctx, led)
		return nil, err
	}

	if err := e.host.StopJail(ctx, scratchName); err != nil {
		e.rollback(ctx, led)
		return nil, fmt.Errorf("stop scratch jail: %w", err)
	}

	releasePath, err := e.publish(scratchPath, opts.ReleaseTag)
	if err != nil {
		e.rollback(ctx, led)
		return nil, fmt.Errorf("publish release %s: %w", opts.ReleaseTag, err)
	}

	e.log.InfoContext(ctx, "build completed", "release_tag", opts.ReleaseTag, "path", releasePath)

	return &Result{
		ReleaseTag:   opts.ReleaseTag,
		ReleasePath:  releasePath,
		Digest:       digest.FromString(opts.ReleaseTag),
		Metadata:     plan.Metadata,
		ExposedPorts: plan.ExposedPorts,
		Cmd:          plan.Cmd,
		Entrypoint:   plan.Entrypoint,
		User:         plan.User,
	}, nil
}

func (e *Executor) ensureBaseRelease(ctx context.Context, tag, dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if e.images == nil {
		return fmt.Errorf("base release %q not found at %s and no image source configured", tag, dir)
	}

	e.log.InfoContext(ctx, "fetching base release", "tag", tag, "source", e.images.Info())
	img, err := e.images.GetImage(ctx)
	if err != nil {
		return fmt.Errorf("fetch base release %s: %w", tag, err)
	}
	if err := e.flattener.Flatten(ctx, img, dir); err != nil {
		return fmt.Errorf("flatten base release %s: %w", tag, err)
	}
	return nil
}

// materializeScratch gives the scratch jail its own copy of the base
// release to mutate. With a COW backend this is a real clone (cheap,
// ledgered so a failed build's clone is destroyed on rollback); with the
// plain backend there's nothing to clone, so the base tree is copied by
// hand, the same as the original template executor's copy_dir_recursive
// fallback when there's no underlying snapshot primitive.
func (e *Executor) materializeScratch(baseDir, scratchPath string, led *ledger.Ledger) error {
	if e.stor.SupportsCOW() {
		if err := e.stor.Clone(baseDir+"@base", scratchPath); err != nil {
			return err
		}
		led.Append(ledger.KindClone, scratchPath)
		return nil
	}

	if err := e.stor.EnsureDataset(scratchPath); err != nil {
		return err
	}
	led.Append(ledger.KindDataset, scratchPath)
	return copyTree(baseDir, scratchPath)
}

func (e *Executor) runSteps(ctx context.Context, plan *BuildPlan, buildCtx *Context, jailName string) error {
	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runStep(ctx, step, buildCtx, jailName); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runStep(ctx context.Context, step BuildStep, buildCtx *Context, jailName string) error {
	switch step.Kind {
	case StepArg:
		// Defaults are already seeded before step execution begins; a
		// later ARG with no prior value just keeps whatever Execute set.
		return nil

	case StepEnv:
		value := buildCtx.Substitute(step.Value)
		if err := buildCtx.CheckResolved(step.Value); err != nil {
			return err
		}
		buildCtx.SetEnv(step.Key, value)
		return nil

	case StepRun:
		if err := buildCtx.CheckResolved(step.Command); err != nil {
			return err
		}
		cmd := buildCtx.Substitute(step.Command)
		argv := []string{"/bin/sh", "-c", cmd}
		res, err := e.host.ExecInJail(ctx, jailName, "root", argv)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRunFailed, err)
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("%w: %q exited %d: %s", ErrRunFailed, cmd, res.ExitCode, res.Stderr)
		}
		return nil

	case StepCopy:
		if err := buildCtx.CheckResolved(step.Src); err != nil {
			return err
		}
		if err := buildCtx.CheckResolved(step.Dest); err != nil {
			return err
		}
		src, err := buildCtx.ResolveSource(buildCtx.Substitute(step.Src))
		if err != nil {
			return err
		}
		dest, err := buildCtx.ResolveDest(buildCtx.Substitute(step.Dest))
		if err != nil {
			return err
		}
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("%w: %s", ErrCopySourceNotFound, src)
		}
		return copyTree(src, dest)

	case StepWorkdir:
		if err := buildCtx.CheckResolved(step.Path); err != nil {
			return err
		}
		path := buildCtx.Substitute(step.Path)
		buildCtx.SetWorkdir(path)
		resolved, err := buildCtx.ResolveDest(path)
		if err != nil {
			return err
		}
		return os.MkdirAll(resolved, 0o755)

	case StepMetadata:
		if isSizeHintKey(step.Key) && step.Value != "" {
			if _, err := units.RAMInBytes(step.Value); err != nil {
				return fmt.Errorf("%w: %s=%s: %v", ErrInvalidSizeHint, step.Key, step.Value, err)
			}
		}
		return nil

	case StepExpose, StepCmd:
		// Metadata-only — no action at build time.
		return nil

	default:
		return nil
	}
}

func isSizeHintKey(key string) bool {
	k := strings.ToLower(key)
	return k == "quota" || strings.HasSuffix(k, "_size") || strings.HasSuffix(k, "-size")
}

// publish renames the scratch root into releases/<tag> for a plain
// backend, or snapshots it in place for a COW backend, returning the
// path a Jail Spec's release would resolve to.
func (e *Executor) publish(scratchPath, tag string) (string, error) {
	dest := e.layout.ReleaseDir(tag)
	if e.stor.SupportsCOW() {
		if err := e.stor.Snapshot(scratchPath, "base"); err != nil {
			return "", err
		}
		if err := e.stor.Clone(scratchPath+"@base", dest); err != nil {
			return "", err
		}
		if err := e.stor.Snapshot(dest, "base"); err != nil {
			return "", err
		}
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if err := os.Rename(scratchPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (e *Executor) rollback(ctx context.Context, led *ledger.Ledger) {
	if led.Empty() {
		return
	}
	if err := led.Rollback(ctx); err != nil {
		e.log.ErrorContext(ctx, "build rollback incomplete", "jail", led.JailName, "error", err)
	}
}

// undoers wires the Resource Ledger's per-kind undo actions to this
// executor's storage and host adapters, scoped to the three kinds a build
// can ever acquire.
func (e *Executor) undoers() map[ledger.Kind]ledger.UndoFunc {
	return map[ledger.Kind]ledger.UndoFunc{
		ledger.KindDataset: func(ctx context.Context, identifier string, force bool) error {
			return e.stor.Destroy(identifier, force)
		},
		ledger.KindClone: func(ctx context.Context, identifier string, force bool) error {
			return e.stor.Destroy(identifier, force)
		},
		ledger.KindJailInstance: func(ctx context.Context, identifier string, force bool) error {
			exists, err := e.host.JailExists(ctx, identifier)
			if err != nil || !exists {
				return nil
			}
			return e.host.StopJail(ctx, identifier)
		},
	}
}

// copyTree copies src onto dest, recursively when src is a directory.
// Grounded on the same recursive-copy fallback the original template
// executor uses when there's no underlying COW primitive to lean on.
func copyTree(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return copyFile(src, dest, info.Mode())
	}

	if err := os.MkdirAll(dest, info.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
