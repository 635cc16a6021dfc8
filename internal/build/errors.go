package build

import "errors"

var (
	// ErrUnresolvedVariable rejects a plan referencing a ${NAME} that
	// resolves against neither a supplied arg, a declared default, nor a
	// previously set Env — caught before any side effect runs.
	ErrUnresolvedVariable = errors.New("unresolved build variable")

	// ErrUnknownInstruction rejects a line the line-format parser doesn't
	// recognize.
	ErrUnknownInstruction = errors.New("unknown build instruction")

	// ErrNoBaseRelease rejects a plan with no From/base_release set.
	ErrNoBaseRelease = errors.New("build plan has no base release")

	// ErrRunFailed wraps a non-zero exit from a Run step.
	ErrRunFailed = errors.New("run step failed")

	// ErrCopySourceNotFound rejects a Copy step whose source doesn't
	// exist under the build context directory.
	ErrCopySourceNotFound = errors.New("copy source not found")

	// ErrInvalidSizeHint rejects a size-like Metadata value (e.g. a quota
	// hint) that doesn't parse as a byte size.
	ErrInvalidSizeHint = errors.New("invalid size hint")

	// ErrContextEscape rejects a Copy src or dest whose ".." segments
	// resolve outside the build context directory or the scratch jail's
	// target root.
	ErrContextEscape = errors.New("build context path escapes its root")
)
