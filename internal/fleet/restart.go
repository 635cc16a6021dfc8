package fleet

import "context"

// Restart is the semantic equivalent of Down then Up for targets: every
// affected jail passes through Stopped before starting again, rather than
// restart being its own state-machine transition.
func (o *Orchestrator) Restart(ctx context.Context, targets []string) error {
	if _, err := o.Down(ctx, targets, DownOptions{}); err != nil {
		return err
	}
	if _, err := o.Up(ctx, targets, UpOptions{}); err != nil {
		return err
	}
	return nil
}
