// Package store implements the persisted-state layout
// (jails/, state/, releases/, builds/, pf/) plus a sqlite index of build
// jobs and live jail instances for `ps` support.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout resolves the fixed subtree under one data_dir.
type Layout struct {
	DataDir string
}

// NewLayout returns a Layout rooted at dataDir, creating every subdirectory
// the layout names if it doesn't already exist.
func NewLayout(dataDir string) (*Layout, error) {
	l := &Layout{DataDir: dataDir}
	for _, dir := range []string{l.JailsDir(), l.StateDir(), l.ReleasesDir(), l.BuildsDir(), l.PFDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLayoutInit, dir, err)
		}
	}
	return l, nil
}

func (l *Layout) JailsDir() string    { return filepath.Join(l.DataDir, "jails") }
func (l *Layout) StateDir() string    { return filepath.Join(l.DataDir, "state") }
func (l *Layout) ReleasesDir() string { return filepath.Join(l.DataDir, "releases") }
func (l *Layout) BuildsDir() string   { return filepath.Join(l.DataDir, "builds") }
func (l *Layout) PFDir() string       { return filepath.Join(l.DataDir, "pf") }

func (l *Layout) JailRoot(name string) string { return filepath.Join(l.JailsDir(), name) }
func (l *Layout) StateFile(name string) string {
	return filepath.Join(l.StateDir(), name+".json")
}
func (l *Layout) ReleaseDir(tag string) string { return filepath.Join(l.ReleasesDir(), tag) }
func (l *Layout) BuildDir(name string) string  { return filepath.Join(l.BuildsDir(), name) }
func (l *Layout) AnchorConf() string           { return filepath.Join(l.PFDir(), "anchor.conf") }
func (l *Layout) LogFile(name string) string   { return filepath.Join(l.JailRoot(name), "console.log") }

// WriteAnchorConf rewrites pf/anchor.conf atomically.
func (l *Layout) WriteAnchorConf(body string) error {
	return writeFileAtomic(l.AnchorConf(), []byte(body), 0o644)
}
