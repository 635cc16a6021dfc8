package health

import (
	"context"
	"strings"
	"time"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/hostadapter"
)

// runCheck executes spec's command once: in jailName if target=jail,
// on the host otherwise. The command gets spec.Timeout seconds to
// finish; a timeout counts as a failed attempt, matching the way
// build.Executor treats a non-zero exit rather than distinguishing
// "timed out" from "failed" at the caller.
func runCheck(ctx context.Context, host hostadapter.HostAdapter, jailName string, spec config.CheckSpec) CheckOutcome {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, time.Duration(spec.Timeout)*time.Second)
	defer cancel()

	argv := []string{"/bin/sh", "-c", spec.Command}
	var res hostadapter.ExecResult
	var err error
	if spec.Target == config.TargetHost {
		res, err = host.ExecOnHost(cctx, argv)
	} else {
		res, err = host.ExecInJail(cctx, jailName, "root", argv)
	}

	passed := err == nil && res.ExitCode == 0
	output := strings.TrimSpace(res.Stdout + res.Stderr)

	if cctx.Err() == context.DeadlineExceeded {
		passed = false
		if output == "" {
			output = "health check timed out"
		}
	}

	return CheckOutcome{
		Name:     spec.Name,
		Passed:   passed,
		Duration: time.Since(start),
		Output:   output,
		At:       start,
	}
}
