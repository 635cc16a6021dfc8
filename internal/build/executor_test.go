package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jailfleet/jailfleet/internal/hostadapter"
	"github.com/jailfleet/jailfleet/internal/lock"
	"github.com/jailfleet/jailfleet/internal/storage"
	"github.com/jailfleet/jailfleet/internal/store"
)

// failingRunHost wraps NoOp so a RUN step whose command contains
// failMarker reports a non-zero exit, letting tests exercise rollback.
type failingRunHost struct {
	*hostadapter.NoOp
	failMarker string
	stopped    []string
}

func (h *failingRunHost) ExecInJail(ctx context.Context, name, user string, argv []string) (hostadapter.ExecResult, error) {
	cmd := strings.Join(argv, " ")
	if h.failMarker != "" && strings.Contains(cmd, h.failMarker) {
		return hostadapter.ExecResult{ExitCode: 1, Stderr: "boom"}, nil
	}
	return hostadapter.ExecResult{ExitCode: 0}, nil
}

func (h *failingRunHost) StopJail(ctx context.Context, name string) error {
	h.stopped = append(h.stopped, name)
	return h.NoOp.StopJail(ctx, name)
}

// recordingHost wraps NoOp to capture the exact sequence of commands run
// in-jail, so a test can compare two independent Execute runs for the
// same ordered side effects.
type recordingHost struct {
	*hostadapter.NoOp
	commands []string
}

func (h *recordingHost) ExecInJail(ctx context.Context, name, user string, argv []string) (hostadapter.ExecResult, error) {
	h.commands = append(h.commands, strings.Join(argv, " "))
	return hostadapter.ExecResult{ExitCode: 0}, nil
}

func newTestExecutor(t *testing.T, host hostadapter.HostAdapter) (*Executor, *store.Layout) {
	t.Helper()
	dir := t.TempDir()
	layout, err := store.NewLayout(dir)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	stor := storage.NewPlain()
	locker := lock.NewNoOpLocker()
	exec := NewExecutor(host, stor, locker, layout, nil, nil, nil)
	return exec, layout
}

func writeBaseRelease(t *testing.T, layout *store.Layout, tag string) {
	t.Helper()
	dir := layout.ReleaseDir(tag)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir base release: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "marker"), []byte("base\n"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
}

func TestExecuteSucceedsAndPublishesRelease(t *testing.T) {
	host := &failingRunHost{NoOp: hostadapter.NewNoOp()}
	exec, layout := newTestExecutor(t, host)
	writeBaseRelease(t, layout, "14.2-RELEASE")

	contextDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(contextDir, "nginx.conf"), []byte("conf\n"), 0o644); err != nil {
		t.Fatalf("write nginx.conf: %v", err)
	}

	plan, err := ParseImperative("FROM 14.2-RELEASE\nRUN pkg install -y nginx\nCOPY nginx.conf /usr/local/etc/nginx/nginx.conf\n")
	if err != nil {
		t.Fatalf("ParseImperative: %v", err)
	}

	result, err := exec.Execute(context.Background(), plan, Options{ContextDir: contextDir, ReleaseTag: "web-v1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.ReleaseTag != "web-v1" {
		t.Errorf("ReleaseTag = %q", result.ReleaseTag)
	}
	if _, err := os.Stat(filepath.Join(result.ReleasePath, "etc", "nginx.conf")); err == nil {
		t.Error("unexpected file at wrong rebased path")
	}
	if _, err := os.Stat(filepath.Join(result.ReleasePath, "usr", "local", "etc", "nginx", "nginx.conf")); err != nil {
		t.Errorf("expected copied file at published release: %v", err)
	}
	if len(host.stopped) == 0 {
		t.Error("expected scratch jail to be stopped")
	}
}

func TestExecuteRollsBackOnRunFailure(t *testing.T) {
	host := &failingRunHost{NoOp: hostadapter.NewNoOp(), failMarker: "explode"}
	exec, layout := newTestExecutor(t, host)
	writeBaseRelease(t, layout, "14.2-RELEASE")

	plan, err := ParseImperative("FROM 14.2-RELEASE\nRUN explode-the-build\n")
	if err != nil {
		t.Fatalf("ParseImperative: %v", err)
	}

	_, err = exec.Execute(context.Background(), plan, Options{ContextDir: t.TempDir(), ReleaseTag: "web-v1"})
	if err == nil {
		t.Fatal("expected build failure")
	}
	if _, statErr := os.Stat(layout.ReleaseDir("web-v1")); statErr == nil {
		t.Error("release should not have been published after rollback")
	}
}

func TestExecuteFailsFastOnUnresolvedVariable(t *testing.T) {
	host := &failingRunHost{NoOp: hostadapter.NewNoOp()}
	exec, layout := newTestExecutor(t, host)
	writeBaseRelease(t, layout, "14.2-RELEASE")

	plan, err := ParseImperative("FROM 14.2-RELEASE\nRUN echo ${NOT_DECLARED}\n")
	if err != nil {
		t.Fatalf("ParseImperative: %v", err)
	}

	_, err = exec.Execute(context.Background(), plan, Options{ContextDir: t.TempDir(), ReleaseTag: "web-v1"})
	if err == nil || !strings.Contains(err.Error(), "unresolved") {
		t.Fatalf("err = %v, want unresolved variable error", err)
	}
}

func TestExecuteSameInputsProduceSameInstructionSequence(t *testing.T) {
	planSrc := "FROM 14.2-RELEASE\nARG VERSION=1.0\nRUN pkg install -y nginx\nRUN echo building version ${VERSION}\n"

	run := func(tag string) []string {
		host := &recordingHost{NoOp: hostadapter.NewNoOp()}
		exec, layout := newTestExecutor(t, host)
		writeBaseRelease(t, layout, "14.2-RELEASE")

		plan, err := ParseImperative(planSrc)
		if err != nil {
			t.Fatalf("ParseImperative: %v", err)
		}
		if _, err := exec.Execute(context.Background(), plan, Options{ContextDir: t.TempDir(), ReleaseTag: tag}); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		return host.commands
	}

	first := run("build-a")
	second := run("build-b")

	if len(first) != len(second) {
		t.Fatalf("command count differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("step %d diverged: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestExecuteRejectsMissingBaseRelease(t *testing.T) {
	host := &failingRunHost{NoOp: hostadapter.NewNoOp()}
	exec, _ := newTestExecutor(t, host)

	plan, err := ParseImperative("FROM does-not-exist\nRUN echo hi\n")
	if err != nil {
		t.Fatalf("ParseImperative: %v", err)
	}

	_, err = exec.Execute(context.Background(), plan, Options{ContextDir: t.TempDir(), ReleaseTag: "x"})
	if err == nil {
		t.Fatal("expected error for missing base release with no image source configured")
	}
}

func TestExecuteRejectsCopyDestThatEscapesTargetPath(t *testing.T) {
	host := &failingRunHost{NoOp: hostadapter.NewNoOp()}
	exec, layout := newTestExecutor(t, host)
	writeBaseRelease(t, layout, "14.2-RELEASE")

	contextDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(contextDir, "payload"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	plan, err := ParseImperative("FROM 14.2-RELEASE\nCOPY payload /../../etc/payload\n")
	if err != nil {
		t.Fatalf("ParseImperative: %v", err)
	}

	_, err = exec.Execute(context.Background(), plan, Options{ContextDir: contextDir, ReleaseTag: "x"})
	if !errors.Is(err, ErrContextEscape) {
		t.Fatalf("Execute error = %v, want ErrContextEscape", err)
	}
}
