package hostadapter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// jailHost is the real HostAdapter, shelling out to the BSD jail(8)/jexec(8)
// toolchain for lifecycle operations the way firecracker.go shells out to
// the firecracker binary — build an exec.Command, wait, check the exit
// code, wrap stderr into the error.
type jailHost struct {
	log *slog.Logger
	net netBackend
	pf  pfBackend
}

// New returns the real HostAdapter. A nil logger defaults to slog.Default().
func New(log *slog.Logger) HostAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &jailHost{log: log, net: netlinkBackend{}, pf: pfctlBackend{}}
}

func (h *jailHost) CreateVNetJail(ctx context.Context, name, path, hostname string, net *NetConfig) error {
	if exists, err := h.JailExists(ctx, name); err != nil {
		return err
	} else if exists {
		h.log.DebugContext(ctx, "jail already exists, treating as success", "jail", name)
		return nil
	}

	args := []string{
		"-c",
		"name=" + name,
		"path=" + path,
		"host.hostname=" + hostname,
		"persist",
	}
	if net != nil && net.VNet {
		args = append(args,
			"vnet",
			"vnet.interface="+net.Epair,
		)
	}

	out, err := runHost(ctx, "jail", args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrJailStartFailed, name, wrapOut(out, err))
	}

	h.log.InfoContext(ctx, "jail created", "jail", name, "path", path, "vnet", net != nil && net.VNet)
	return nil
}

func (h *jailHost) StopJail(ctx context.Context, name string) error {
	exists, err := h.JailExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	out, err := runHost(ctx, "jail", "-r", name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrJailStopFailed, name, wrapOut(out, err))
	}
	h.log.InfoContext(ctx, "jail stopped", "jail", name)
	return nil
}

func (h *jailHost) JailExists(ctx context.Context, name string) (bool, error) {
	out, err := runHost(ctx, "jls", "-j", name, "jid")
	if err != nil {
		// jls exits non-zero for an unknown jail name; that's "doesn't
		// exist", not a tooling failure.
		return false, nil
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

func (h *jailHost) ExecInJail(ctx context.Context, name, user string, argv []string) (ExecResult, error) {
	args := []string{}
	if user != "" {
		args = append(args, "-U", user)
	}
	args = append(args, name)
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, "jexec", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrExecFailed, name, err)
	}
	return result, nil
}

func (h *jailHost) ExecOnHost(ctx context.Context, argv []string) (ExecResult, error) {
	if len(argv) == 0 {
		return ExecResult{}, fmt.Errorf("%w: empty argv", ErrExecFailed)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrExecFailed, err)
	}
	return result, nil
}

func (h *jailHost) ExtractArchive(ctx context.Context, path, dest string) error {
	out, err := runHost(ctx, "tar", "-xf", path, "-C", dest)
	if err != nil {
		return fmt.Errorf("%w: %s -> %s: %v", ErrArchiveExtractFailed, path, dest, wrapOut(out, err))
	}
	return nil
}

func (h *jailHost) Fetch(ctx context.Context, url, dest string) error {
	out, err := runHost(ctx, "fetch", "-o", dest, url)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, wrapOut(out, err))
	}
	return nil
}

func runHost(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	return out, err
}

func wrapOut(out []byte, err error) error {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return err
	}
	return fmt.Errorf("%s: %w", trimmed, err)
}
