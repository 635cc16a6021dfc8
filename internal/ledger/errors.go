package ledger

import "errors"

var (
	// ErrUnknownKind rejects an Entry whose Kind has no registered undo.
	ErrUnknownKind = errors.New("unknown ledger entry kind")

	// ErrUndoFailed wraps one or more undo failures collected during
	// Rollback. The jail must be marked Failed when this is returned.
	ErrUndoFailed = errors.New("resource undo failed")
)
