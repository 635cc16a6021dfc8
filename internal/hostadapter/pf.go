package hostadapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// pfBackend isolates the pfctl(8) calls behind an interface; jailHost.pf
// holds the pfctl-backed implementation New wires in.
type pfBackend interface {
	load(anchor, rules string) error
	unload(anchor string) error
}

// pfctlBackend loads and unloads the single shared anchor's rule body via
// pfctl -a <anchor> -f -, piping the rendered rules on stdin. This is the
// real BSD "single top-level anchor" primitive.
type pfctlBackend struct{}

func (pfctlBackend) load(anchor, rules string) error {
	cmd := exec.Command("pfctl", "-a", anchor, "-f", "-")
	cmd.Stdin = bytes.NewReader([]byte(rules))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAnchorLoadFailed, stderr.String(), err)
	}
	return nil
}

func (pfctlBackend) unload(anchor string) error {
	cmd := exec.Command("pfctl", "-a", anchor, "-F", "all")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAnchorUnloadFailed, stderr.String(), err)
	}
	return nil
}

func (h *jailHost) PFAnchorLoad(ctx context.Context, anchor, rules string) error {
	err := h.pf.load(anchor, rules)
	if err == nil {
		h.log.InfoContext(ctx, "pf anchor loaded", "anchor", anchor)
	}
	return err
}

func (h *jailHost) PFAnchorUnload(ctx context.Context, anchor string) error {
	return h.pf.unload(anchor)
}
