package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// COW shells out to zfs(8) for every operation rather than reimplementing
// a filesystem in Go. Pool paths are dataset paths like "zroot/jailfleet/web".
type COW struct {
	log *slog.Logger
}

// NewCOW returns a zfs-backed Adapter. A nil logger defaults to
// slog.Default().
func NewCOW(log *slog.Logger) *COW {
	if log == nil {
		log = slog.Default()
	}
	return &COW{log: log}
}

func (c *COW) SupportsCOW() bool { return true }

func (c *COW) EnsureDataset(path string) error {
	if c.datasetExists(path) {
		return nil
	}
	if _, err := run("zfs", "create", "-p", path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDatasetCreateFailed, path, err)
	}
	return nil
}

func (c *COW) Snapshot(path, name string) error {
	target := path + "@" + name
	if _, err := run("zfs", "snapshot", target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSnapshotFailed, target, err)
	}
	return nil
}

func (c *COW) Clone(srcSnapshot, dst string) error {
	if _, err := run("zfs", "clone", "-p", srcSnapshot, dst); err != nil {
		return fmt.Errorf("%w: %s -> %s: %v", ErrCloneFailed, srcSnapshot, dst, err)
	}
	return nil
}

func (c *COW) Destroy(path string, recursive bool) error {
	if !recursive {
		children, err := c.children(path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDestroyFailed, path, err)
		}
		if len(children) > 0 {
			return fmt.Errorf("%w: %s has %d descendant(s)", ErrDestroyHasDescendants, path, len(children))
		}
	}

	args := []string{"destroy"}
	if recursive {
		args = append(args, "-r")
	}
	args = append(args, path)
	if _, err := run("zfs", args...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDestroyFailed, path, err)
	}
	return nil
}

func (c *COW) Send(srcSnapshot string, w io.Writer) error {
	cmd := exec.CommandContext(context.Background(), "zfs", "send", srcSnapshot)
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %s: %v", ErrSendFailed, srcSnapshot, stderr.String(), err)
	}
	return nil
}

func (c *COW) Receive(r io.Reader, dst string) error {
	cmd := exec.CommandContext(context.Background(), "zfs", "receive", dst)
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %s: %v", ErrReceiveFailed, dst, stderr.String(), err)
	}
	return nil
}

func (c *COW) ListSnapshots(path string) ([]string, error) {
	out, err := run("zfs", "list", "-t", "snapshot", "-H", "-o", "name", "-r", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrListSnapshotsFailed, path, err)
	}

	var names []string
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	prefix := path + "@"
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, prefix) {
			names = append(names, strings.TrimPrefix(line, prefix))
		}
	}
	return names, nil
}

func (c *COW) datasetExists(path string) bool {
	_, err := run("zfs", "list", "-H", path)
	return err == nil
}

// children lists every descendant dataset of path (not snapshots),
// used by Destroy's non-recursive descendant check.
func (c *COW) children(path string) ([]string, error) {
	out, err := run("zfs", "list", "-H", "-o", "name", "-r", path)
	if err != nil {
		return nil, err
	}
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		name := scanner.Text()
		if name != path {
			names = append(names, name)
		}
	}
	return names, nil
}

func run(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}
