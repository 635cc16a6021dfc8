// Package health implements the Health Supervisor: one cooperative task
// per enabled Check Spec of a Running/Degraded jail, aggregating a
// per-jail verdict and optionally driving a bounded-backoff restart
// through a caller-supplied callback.
package health

import (
	"context"
	"time"
)

// Verdict is the aggregate health of one jail across all of its enabled
// checks.
type Verdict string

const (
	// VerdictHealthy means every enabled check is under its retry
	// threshold.
	VerdictHealthy Verdict = "healthy"
	// VerdictDegraded means at least one enabled check is over its
	// retry threshold.
	VerdictDegraded Verdict = "degraded"
	// VerdictUnknown means at least one enabled check hasn't completed
	// its first pass yet.
	VerdictUnknown Verdict = "unknown"
)

// CheckOutcome is the result of one execution of one Check Spec.
type CheckOutcome struct {
	Name     string
	Passed   bool
	Duration time.Duration
	Output   string
	At       time.Time
}

// RestartFunc asks the lifecycle orchestrator to restart a jail. The
// supervisor never touches the ledger or the jail state machine itself —
// every restart is requested through this callback, which is expected to
// be internal/fleet's own restart(name) operation.
type RestartFunc func(ctx context.Context, jailName string) error

// EventFunc publishes one supervisor event: a verdict change, a check
// going over its retry threshold, a restart attempt. A nil EventFunc
// passed to NewSupervisor is replaced with a no-op.
type EventFunc func(jailName, event, detail string)
