package fleet

import "errors"

var (
	// ErrUnknownJail names a target that doesn't resolve to any Jail Spec
	// in the Fleet Config.
	ErrUnknownJail = errors.New("unknown jail")

	// ErrRequiresCleanup rejects `up` on a jail stuck in Failed: up on a
	// Failed jail refuses unless preceded by cleanup.
	ErrRequiresCleanup = errors.New("jail is failed, run cleanup before up")

	// ErrNotCleanable rejects `cleanup` on a jail that isn't Failed or an
	// orphaned Stopped record.
	ErrNotCleanable = errors.New("jail is not in a cleanable state")

	// ErrPartialFailure wraps the per-jail errors an up/down/restart call
	// collects when one or more independent jails in the target set fail;
	// jails outside the failing branch are left exactly as they ended up.
	ErrPartialFailure = errors.New("one or more jails failed")

	// ErrHookFailed wraps a hook command's non-zero exit or exec failure
	// when its on_failure mode is "abort".
	ErrHookFailed = errors.New("hook failed")
)
