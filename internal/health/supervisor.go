package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
)

// checkState is one check's bookkeeping within a jail's supervision: its
// current consecutive-failure count and whether it has completed a first
// pass yet (drives the Unknown verdict).
type checkState struct {
	spec     config.CheckSpec
	failures int
	everRun  bool
}

// jailSupervision is the running state for one jail's set of checks.
// Its own mutex guards the check map and restart bookkeeping; this is
// separate from Supervisor.verdictMu, which exists only to guard the
// single map write each aggregate-verdict change makes.
type jailSupervision struct {
	mu         sync.Mutex
	checks     map[string]*checkState
	cancel     context.CancelFunc
	backoff    backoff
	restarting bool
}

// Supervisor runs one cooperative task per enabled check of every jail
// handed to Supervise. It owns no lock beyond a single verdict-map
// mutation per change; per-jail check bookkeeping used
// to compute that verdict is owned by the jail's own jailSupervision.
type Supervisor struct {
	host    hostadapter.HostAdapter
	restart RestartFunc
	event   EventFunc
	log     *slog.Logger

	verdictMu sync.Mutex
	verdicts  map[string]Verdict

	jailsMu sync.Mutex
	jails   map[string]*jailSupervision
}

// NewSupervisor wires a Supervisor. restart may be nil if the caller
// never wants automatic restarts (e.g. a one-shot `check` invocation that
// only wants verdicts). A nil event is replaced with a no-op; a nil
// logger defaults to slog.Default().
func NewSupervisor(host hostadapter.HostAdapter, restart RestartFunc, event EventFunc, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	if event == nil {
		event = func(string, string, string) {}
	}
	return &Supervisor{
		host:     host,
		restart:  restart,
		event:    event,
		log:      log,
		verdicts: make(map[string]Verdict),
		jails:    make(map[string]*jailSupervision),
	}
}

// Supervise starts one goroutine per check in checks for jailName,
// replacing any supervision already running for that jail. Every task
// is cancelled when ctx is done or Stop(jailName) is called.
func (s *Supervisor) Supervise(ctx context.Context, jailName string, checks []config.CheckSpec) {
	s.Stop(jailName)

	if len(checks) == 0 {
		s.setVerdict(jailName, VerdictUnknown)
		return
	}

	js := &jailSupervision{checks: make(map[string]*checkState, len(checks))}
	for _, c := range checks {
		js.checks[c.Name] = &checkState{spec: c}
	}

	taskCtx, cancel := context.WithCancel(ctx)
	js.cancel = cancel

	s.jailsMu.Lock()
	s.jails[jailName] = js
	s.jailsMu.Unlock()

	s.setVerdict(jailName, VerdictUnknown)

	for _, c := range checks {
		go s.runCheckLoop(taskCtx, jailName, js, c)
	}
}

// Stop cancels every check task running for jailName, if any. In-flight
// commands get their own check timeout to finish before the task exits,
// enforced by runCheck's own context.WithTimeout rather than by Stop.
func (s *Supervisor) Stop(jailName string) {
	s.jailsMu.Lock()
	js, ok := s.jails[jailName]
	if ok {
		delete(s.jails, jailName)
	}
	s.jailsMu.Unlock()

	if ok && js.cancel != nil {
		js.cancel()
	}
}

// Verdict returns the last-published aggregate verdict for jailName, or
// VerdictUnknown if nothing has been published yet.
func (s *Supervisor) Verdict(jailName string) Verdict {
	s.verdictMu.Lock()
	defer s.verdictMu.Unlock()
	v, ok := s.verdicts[jailName]
	if !ok {
		return VerdictUnknown
	}
	return v
}

func (s *Supervisor) setVerdict(jailName string, v Verdict) Verdict {
	s.verdictMu.Lock()
	prev := s.verdicts[jailName]
	s.verdicts[jailName] = v
	s.verdictMu.Unlock()
	return prev
}

func (s *Supervisor) runCheckLoop(ctx context.Context, jailName string, js *jailSupervision, spec config.CheckSpec) {
	interval := time.Duration(spec.Interval) * time.Second
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		outcome := runCheck(ctx, s.host, jailName, spec)
		s.recordOutcome(ctx, jailName, js, spec, outcome)

		if ctx.Err() != nil {
			return
		}
		timer.Reset(interval)
	}
}

// recordOutcome updates spec's failure count, recomputes jailName's
// aggregate verdict, and triggers a restart if this check just crossed
// its retry threshold. Aggregation rule: healthy iff
// every check is under its retries; degraded iff any is over; unknown
// until every check has completed at least one pass.
func (s *Supervisor) recordOutcome(ctx context.Context, jailName string, js *jailSupervision, spec config.CheckSpec, outcome CheckOutcome) {
	js.mu.Lock()
	cs := js.checks[spec.Name]
	cs.everRun = true
	if outcome.Passed {
		cs.failures = 0
	} else {
		cs.failures++
	}
	crossedThreshold := !outcome.Passed && cs.failures > spec.Retries

	allKnown, anyDegraded := true, false
	for _, c := range js.checks {
		if !c.everRun {
			allKnown = false
			continue
		}
		if c.failures > c.spec.Retries {
			anyDegraded = true
		}
	}
	js.mu.Unlock()

	verdict := VerdictHealthy
	switch {
	case anyDegraded:
		verdict = VerdictDegraded
	case !allKnown:
		verdict = VerdictUnknown
	}

	prev := s.setVerdict(jailName, verdict)
	if verdict != prev {
		s.event(jailName, "verdict_changed", string(verdict))
		s.log.InfoContext(ctx, "health verdict changed", "jail", jailName, "verdict", verdict)
	}

	if !outcome.Passed {
		s.event(jailName, "check_failed", spec.Name+": "+outcome.Output)
	}

	if crossedThreshold {
		s.event(jailName, "check_over_threshold", spec.Name)
		s.maybeRestart(ctx, jailName, js)
		return
	}

	if verdict == VerdictHealthy {
		js.mu.Lock()
		js.backoff.reset()
		js.mu.Unlock()
	}
}

// maybeRestart schedules one restart attempt with the jail's current
// backoff delay. It is a no-op if restart is nil (supervisor running in
// check-only mode) or a restart for this jail is already scheduled.
func (s *Supervisor) maybeRestart(ctx context.Context, jailName string, js *jailSupervision) {
	if s.restart == nil {
		return
	}

	js.mu.Lock()
	if js.restarting {
		js.mu.Unlock()
		return
	}
	js.restarting = true
	delay := js.backoff.next()
	js.mu.Unlock()

	go func() {
		defer func() {
			js.mu.Lock()
			js.restarting = false
			js.mu.Unlock()
		}()

		s.event(jailName, "restart_scheduled", delay.String())

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := s.restart(ctx, jailName); err != nil {
			s.log.ErrorContext(ctx, "supervisor restart failed", "jail", jailName, "error", err)
			s.event(jailName, "restart_failed", err.Error())
			return
		}
		s.event(jailName, "restart_succeeded", "")
	}()
}
