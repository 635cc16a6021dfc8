package fleet

import (
	"context"
	"errors"
	"testing"

	"github.com/jailfleet/jailfleet/internal/build"
	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/storage"
)

// TestBuildRefusesPlainBackend confirms a plain storage backend can't
// back a build (which is always rooted at a clone of its base release),
// and that's reported before Execute ever touches a scratch jail, not
// partway through one.
func TestBuildRefusesPlainBackend(t *testing.T) {
	o := newTestOrchestrator(t, &config.Fleet{})
	plan := &build.BuildPlan{BaseRelease: "freebsd-14.0"}

	_, err := o.Build(context.Background(), plan, "myrelease", BuildOptions{})
	if !errors.Is(err, storage.ErrUnsupported) {
		t.Fatalf("Build on a plain backend: got %v, want ErrUnsupported", err)
	}
}
