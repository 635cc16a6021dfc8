package fleet

import (
	"context"
	"fmt"

	"github.com/jailfleet/jailfleet/internal/config"
)

// runHooks executes every hook attached to j for phase, in declared order.
// A hook whose command exits non-zero, or whose exec call itself errors,
// ends the run with ErrHookFailed when its OnFailure mode is abort; with
// continue it is logged as a warning and the next hook runs.
func (o *Orchestrator) runHooks(ctx context.Context, j *config.JailSpec, phase config.HookPhase) error {
	for _, h := range j.Hooks {
		if h.Phase != phase {
			continue
		}

		argv := []string{"/bin/sh", "-c", h.Command}

		var exitCode int
		var err error
		if h.Target == config.TargetHost {
			r, e := o.host.ExecOnHost(ctx, argv)
			exitCode, err = r.ExitCode, e
		} else {
			r, e := o.host.ExecInJail(ctx, j.Name, "root", argv)
			exitCode, err = r.ExitCode, e
		}

		failed := err != nil || exitCode != 0
		if !failed {
			continue
		}

		hookErr := fmt.Errorf("%w: jail %s phase %s: %v (exit %d)", ErrHookFailed, j.Name, phase, err, exitCode)
		if h.OnFailure == config.OnFailureAbort {
			return hookErr
		}
		o.log.WarnContext(ctx, "hook failed, continuing", "jail", j.Name, "phase", phase, "error", hookErr)
	}
	return nil
}
