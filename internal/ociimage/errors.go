package ociimage

import "errors"

var (
	ErrInvalidReference = errors.New("invalid image reference")
	ErrFetchFailed      = errors.New("failed to fetch image from registry")
	ErrPathTraversal    = errors.New("layer entry escapes target directory")
	ErrUnsupportedLayer = errors.New("unsupported layer media type")
)
