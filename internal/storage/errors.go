package storage

import "errors"

var (
	// ErrUnsupported is ConfigError::Unsupported — the plain backend was
	// asked for a COW-only operation.
	ErrUnsupported = errors.New("operation unsupported by storage backend")

	ErrDatasetCreateFailed   = errors.New("failed to ensure dataset")
	ErrSnapshotFailed        = errors.New("failed to create snapshot")
	ErrCloneFailed           = errors.New("failed to clone snapshot")
	ErrDestroyFailed         = errors.New("failed to destroy dataset")
	ErrDestroyHasDescendants = errors.New("dataset has non-ledger descendants")
	ErrSendFailed            = errors.New("failed to send dataset stream")
	ErrReceiveFailed         = errors.New("failed to receive dataset stream")
	ErrListSnapshotsFailed   = errors.New("failed to list snapshots")
)
