package fleet

import (
	"context"
	"fmt"

	"github.com/jailfleet/jailfleet/internal/build"
	"github.com/jailfleet/jailfleet/internal/storage"
)

// BuildOptions parameterizes a Build call.
type BuildOptions struct {
	ContextDir string
	Args       map[string]string
}

// Build executes plan against a scratch jail and, on success, registers the
// result as release tag under this fleet's releases directory. A plain
// storage backend is refused here at entry — every build is rooted at a
// clone of its base release, so a backend that can't clone can't build,
// full stop, and the caller learns that before anything is touched
// rather than partway through Execute.
func (o *Orchestrator) Build(ctx context.Context, plan *build.BuildPlan, tag string, opts BuildOptions) (*build.Result, error) {
	if !o.stor.SupportsCOW() {
		return nil, fmt.Errorf("%w: build requires a COW-capable storage backend", storage.ErrUnsupported)
	}

	exec := build.NewExecutor(o.host, o.stor, o.locker, o.layout, nil, nil, o.log)
	return exec.Execute(ctx, plan, build.Options{
		ContextDir: opts.ContextDir,
		ReleaseTag: tag,
		Args:       opts.Args,
	})
}
