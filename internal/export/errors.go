package export

import "errors"

var (
	// ErrMalformedArchive means a tar archive Import read had no
	// meta.json at its root.
	ErrMalformedArchive = errors.New("archive missing meta.json")

	// ErrPathTraversal means a tar entry's name would resolve outside
	// the extraction root via a ".." segment. Symlinks are not followed
	// by this check.
	ErrPathTraversal = errors.New("tar entry escapes extraction root")
)
