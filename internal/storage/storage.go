// Package storage is the dataset abstraction the core calls through for
// everything COW-related: ensuring a dataset exists, snapshotting it,
// cloning a snapshot, and the send/receive pair used for release export.
// A plain backend implements only directory creation and errors on the
// rest with ErrUnsupported; the operations that need those calls refuse
// up front via SupportsCOW, not at config-check time.
package storage

import "io"

// Adapter is the storage operation set every backend implements.
type Adapter interface {
	EnsureDataset(path string) error
	Snapshot(path, name string) error
	Clone(srcSnapshot, dst string) error
	Destroy(path string, recursive bool) error
	Send(srcSnapshot string, w io.Writer) error
	Receive(r io.Reader, dst string) error
	ListSnapshots(path string) ([]string, error)

	// SupportsCOW reports whether Snapshot/Clone/Send/Receive will work,
	// so a COW-dependent operation (snapshot, clone, build, native export)
	// can refuse against a plain backend before anything runs.
	SupportsCOW() bool
}
