package health

import (
	"context"
	"testing"
	"time"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
)

// scriptedHost wraps NoOp so a test can control ExecInJail/ExecOnHost's
// exit code per call, the way build's failingRunHost scripts RUN steps.
type scriptedHost struct {
	*hostadapter.NoOp
	result func() hostadapter.ExecResult
	sleep  time.Duration
}

func (h *scriptedHost) ExecInJail(ctx context.Context, name, user string, argv []string) (hostadapter.ExecResult, error) {
	return h.exec(ctx)
}

func (h *scriptedHost) ExecOnHost(ctx context.Context, argv []string) (hostadapter.ExecResult, error) {
	return h.exec(ctx)
}

func (h *scriptedHost) exec(ctx context.Context) (hostadapter.ExecResult, error) {
	if h.sleep > 0 {
		select {
		case <-time.After(h.sleep):
		case <-ctx.Done():
			return hostadapter.ExecResult{}, ctx.Err()
		}
	}
	return h.result(), nil
}

func TestRunCheckPassesOnZeroExit(t *testing.T) {
	host := &scriptedHost{NoOp: hostadapter.NewNoOp(), result: func() hostadapter.ExecResult {
		return hostadapter.ExecResult{ExitCode: 0}
	}}
	spec := config.CheckSpec{Name: "ok", Command: "true", Target: config.TargetJail, Interval: 1, Timeout: 1, Retries: 0}

	outcome := runCheck(context.Background(), host, "web", spec)
	if !outcome.Passed {
		t.Errorf("expected passed outcome, got %+v", outcome)
	}
}

func TestRunCheckFailsOnNonZeroExit(t *testing.T) {
	host := &scriptedHost{NoOp: hostadapter.NewNoOp(), result: func() hostadapter.ExecResult {
		return hostadapter.ExecResult{ExitCode: 1, Stderr: "boom"}
	}}
	spec := config.CheckSpec{Name: "bad", Command: "false", Target: config.TargetJail, Interval: 1, Timeout: 1, Retries: 0}

	outcome := runCheck(context.Background(), host, "web", spec)
	if outcome.Passed {
		t.Error("expected failed outcome")
	}
	if outcome.Output != "boom" {
		t.Errorf("Output = %q, want boom", outcome.Output)
	}
}

func TestRunCheckTreatsTimeoutAsFailure(t *testing.T) {
	host := &scriptedHost{
		NoOp:   hostadapter.NewNoOp(),
		sleep:  2 * time.Second,
		result: func() hostadapter.ExecResult { return hostadapter.ExecResult{ExitCode: 0} },
	}
	spec := config.CheckSpec{Name: "slow", Command: "sleep 2", Target: config.TargetHost, Interval: 1, Timeout: 1, Retries: 0}

	outcome := runCheck(context.Background(), host, "web", spec)
	if outcome.Passed {
		t.Error("expected a timed-out check to count as failed")
	}
}
