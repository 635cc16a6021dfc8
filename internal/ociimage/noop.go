package ociimage

import "context"

// NoOpFlattener records invocations without touching the filesystem, for
// Build Planner tests that don't want a real target directory.
type NoOpFlattener struct {
	Calls []NoOpFlattenCall
}

type NoOpFlattenCall struct {
	Digest    string
	TargetDir string
}

func NewNoOpFlattener() *NoOpFlattener {
	return &NoOpFlattener{}
}

func (f *NoOpFlattener) Flatten(ctx context.Context, img *Image, targetDir string) error {
	f.Calls = append(f.Calls, NoOpFlattenCall{Digest: string(img.Digest), TargetDir: targetDir})
	return nil
}
