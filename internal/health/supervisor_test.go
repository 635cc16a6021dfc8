package health

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
)

func TestSuperviseDegradesThenRestarts(t *testing.T) {
	var calls int32
	host := &scriptedHost{NoOp: hostadapter.NewNoOp(), result: func() hostadapter.ExecResult {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			return hostadapter.ExecResult{ExitCode: 1}
		}
		return hostadapter.ExecResult{ExitCode: 0}
	}}

	restarted := make(chan string, 1)
	restart := func(ctx context.Context, name string) error {
		restarted <- name
		return nil
	}

	var mu sync.Mutex
	var events []string
	eventFn := func(jail, event, detail string) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	}

	sup := NewSupervisor(host, restart, eventFn, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := []config.CheckSpec{
		{Name: "ping", Command: "true", Target: config.TargetJail, Interval: 1, Timeout: 1, Retries: 1},
	}
	sup.Supervise(ctx, "web", checks)
	defer sup.Stop("web")

	select {
	case name := <-restarted:
		if name != "web" {
			t.Errorf("restart called for %q, want web", name)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("timed out waiting for a restart to be triggered")
	}

	mu.Lock()
	defer mu.Unlock()
	var sawThreshold bool
	for _, e := range events {
		if e == "check_over_threshold" {
			sawThreshold = true
		}
	}
	if !sawThreshold {
		t.Errorf("expected a check_over_threshold event, got %v", events)
	}
}

func TestSuperviseStaysHealthyWhenAllChecksPass(t *testing.T) {
	host := &scriptedHost{NoOp: hostadapter.NewNoOp(), result: func() hostadapter.ExecResult {
		return hostadapter.ExecResult{ExitCode: 0}
	}}

	sup := NewSupervisor(host, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := []config.CheckSpec{
		{Name: "ping", Command: "true", Target: config.TargetJail, Interval: 1, Timeout: 1, Retries: 1},
	}
	sup.Supervise(ctx, "web", checks)
	defer sup.Stop("web")

	deadline := time.After(3 * time.Second)
	for {
		if sup.Verdict("web") == VerdictHealthy {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("verdict never became healthy, last was %v", sup.Verdict("web"))
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func TestSuperviseWithNoChecksIsUnknown(t *testing.T) {
	sup := NewSupervisor(hostadapter.NewNoOp(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup.Supervise(ctx, "idle", nil)
	defer sup.Stop("idle")

	if got := sup.Verdict("idle"); got != VerdictUnknown {
		t.Errorf("Verdict = %v, want unknown", got)
	}
}

func TestStopCancelsCheckTasks(t *testing.T) {
	var calls int32
	host := &scriptedHost{NoOp: hostadapter.NewNoOp(), result: func() hostadapter.ExecResult {
		atomic.AddInt32(&calls, 1)
		return hostadapter.ExecResult{ExitCode: 0}
	}}

	sup := NewSupervisor(host, nil, nil, nil)
	ctx := context.Background()
	checks := []config.CheckSpec{
		{Name: "ping", Command: "true", Target: config.TargetJail, Interval: 1, Timeout: 1, Retries: 1},
	}
	sup.Supervise(ctx, "web", checks)
	time.Sleep(1200 * time.Millisecond)
	sup.Stop("web")

	after := atomic.LoadInt32(&calls)
	time.Sleep(1200 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != after {
		t.Errorf("check still running after Stop: calls went from %d to %d", after, got)
	}
}
