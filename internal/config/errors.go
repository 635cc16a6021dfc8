package config

import "errors"

var (
	// ErrInvalidName rejects a jail name outside [A-Za-z0-9_-]{1,64}.
	ErrInvalidName = errors.New("invalid jail name")

	// ErrDuplicateName rejects two jail specs sharing a name.
	ErrDuplicateName = errors.New("duplicate jail name")

	// ErrUnknownDependency rejects a depends_on entry with no matching spec.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrPathConflict rejects a Fleet Config in which two jail specs resolve
	// to the same filesystem root, by explicit path or by the path derived
	// from the data directory layout. An explicit path is used as given; it
	// is not compared against the Global pool/dataset_root.
	ErrPathConflict = errors.New("explicit path conflicts with derived dataset path")

	// ErrInvalidCheck rejects a Check Spec violating interval/timeout/retries rules.
	ErrInvalidCheck = errors.New("invalid health check")

	// ErrInvalidHook rejects a Hook Spec with an illegal phase/target/on_failure.
	ErrInvalidHook = errors.New("invalid hook")

	// ErrInvalidPort rejects an Exposed Port with an unknown protocol or a
	// host/internal port outside 1-65535.
	ErrInvalidPort = errors.New("invalid exposed port")
)
