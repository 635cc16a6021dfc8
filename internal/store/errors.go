package store

import "errors"

var (
	// ErrRecordCorrupt means a state/<name>.json file exists but doesn't
	// unmarshal. This refuses all mutation for that jail
	// until cleanup --force resets it.
	ErrRecordCorrupt = errors.New("jail runtime record is corrupt")

	// ErrRecordNotFound means no runtime record exists for a jail yet.
	ErrRecordNotFound = errors.New("jail runtime record not found")

	// ErrLayoutInit wraps a failure creating the data_dir subtree.
	ErrLayoutInit = errors.New("failed to initialize data directory layout")
)
