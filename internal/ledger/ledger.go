// Package ledger implements the per-jail resource ledger: an append-only
// record of every side-effecting acquisition made while starting a jail,
// and the strict-reverse-order undo that rolls one back on failure.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Kind is the category of resource one Entry represents. Each kind has a
// documented undo action; see UndoFunc. The caller supplies the per-kind
// actions to New or Load.
type Kind string

const (
	KindDataset       Kind = "dataset"
	KindClone         Kind = "clone"
	KindInterfacePair Kind = "interface-pair"
	KindBridgeMember  Kind = "bridge-member"
	KindPFAnchorRule  Kind = "pf-anchor-rule"
	KindMount         Kind = "mount"
	KindJailInstance  Kind = "jail-instance"
)

// Entry is one acquired resource, recorded before or immediately after the
// side-effecting call that acquired it succeeds.
type Entry struct {
	ID         string
	Kind       Kind
	Identifier string // e.g. dataset name, interface name, rule id
	CreatedAt  time.Time
}

// UndoFunc releases one resource identified by Identifier. force indicates
// a second attempt after a prior undo in the same rollback already failed
// (used by the mount kind per spec: "unmount (force after first failure)").
type UndoFunc func(ctx context.Context, identifier string, force bool) error

// Ledger is the append-only, per-jail resource list.
type Ledger struct {
	JailName string
	entries  []Entry
	undoers  map[Kind]UndoFunc
	log      *slog.Logger
}

// New creates a Ledger for jailName, dispatching undo calls through undoers.
// A nil logger defaults to slog.Default().
func New(jailName string, undoers map[Kind]UndoFunc, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{JailName: jailName, undoers: undoers, log: log}
}

// Load reconstructs a Ledger from entries a Jail Runtime Record already
// persisted, so a later operation (down's "release resources via ledger"
// step) can Rollback a ledger it didn't itself build up in this process.
func Load(jailName string, entries []Entry, undoers map[Kind]UndoFunc, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		JailName: jailName,
		entries:  append([]Entry(nil), entries...),
		undoers:  undoers,
		log:      log,
	}
}

// Append records a newly acquired resource and returns its generated id.
func (l *Ledger) Append(kind Kind, identifier string) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		Kind:       kind,
		Identifier: identifier,
		CreatedAt:  time.Now(),
	}
	l.entries = append(l.entries, e)
	l.log.Debug("ledger entry appended", "jail", l.JailName, "kind", kind, "identifier", identifier)
	return e
}

// Entries returns a copy of the entries recorded so far, in creation order.
func (l *Ledger) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Empty reports whether the ledger has no entries.
func (l *Ledger) Empty() bool {
	return len(l.entries) == 0
}

// Rollback undoes every entry in strict reverse order. Undo errors are
// collected rather than aborting the loop: every entry gets one undo
// attempt regardless of earlier failures. If every undo succeeds, the
// ledger is cleared and Rollback returns nil. If any undo fails, the
// ledger is left intact (per spec: "leaves the ledger intact") and
// Rollback returns a wrapped ErrUndoFailed naming every failing entry —
// the caller is expected to mark the jail Failed so cleanup can finish.
func (l *Ledger) Rollback(ctx context.Context) error {
	var failures []error
	failedPrior := false

	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		undo, ok := l.undoers[e.Kind]
		if !ok {
			failures = append(failures, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind))
			failedPrior = true
			continue
		}
		if err := undo(ctx, e.Identifier, failedPrior); err != nil {
			l.log.Warn("undo failed", "jail", l.JailName, "kind", e.Kind, "identifier", e.Identifier, "error", err)
			failures = append(failures, fmt.Errorf("undo %s %q: %w", e.Kind, e.Identifier, err))
			failedPrior = true
			continue
		}
		l.log.Debug("undo succeeded", "jail", l.JailName, "kind", e.Kind, "identifier", e.Identifier)
	}

	if len(failures) == 0 {
		l.entries = nil
		return nil
	}

	return fmt.Errorf("%w: %d of %d entries: %v", ErrUndoFailed, len(failures), len(l.entries), failures)
}
