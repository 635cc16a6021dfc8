package fleet

import (
	"fmt"

	"github.com/jailfleet/jailfleet/internal/config"
	"github.com/jailfleet/jailfleet/internal/storage"
)

// Snapshot takes a point-in-time snapshot of jailName's dataset, returning
// the full snapshot identifier (path@name) a later Clone or export --native
// call can reference. Requires a COW-capable storage backend, the same
// requirement Build() has for the same reason: a plain backend has no
// snapshot primitive to shell out to.
func (o *Orchestrator) Snapshot(jailName, snapName string) (string, error) {
	if !o.stor.SupportsCOW() {
		return "", fmt.Errorf("%w: snapshot requires a COW-capable storage backend", storage.ErrUnsupported)
	}
	j := o.fleet.JailByName(jailName)
	if j == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownJail, jailName)
	}

	path := o.resolvePath(j)
	if err := o.stor.Snapshot(path, snapName); err != nil {
		return "", err
	}
	return path + "@" + snapName, nil
}

// ListSnapshots returns the snapshot names taken of jailName's dataset,
// oldest first, as reported by the storage backend.
func (o *Orchestrator) ListSnapshots(jailName string) ([]string, error) {
	if !o.stor.SupportsCOW() {
		return nil, fmt.Errorf("%w: snapshots require a COW-capable storage backend", storage.ErrUnsupported)
	}
	j := o.fleet.JailByName(jailName)
	if j == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJail, jailName)
	}
	return o.stor.ListSnapshots(o.resolvePath(j))
}

// DeleteSnapshot destroys a single named snapshot of jailName's dataset.
// It never touches the live dataset itself, only the snapshot.
func (o *Orchestrator) DeleteSnapshot(jailName, snapName string) error {
	if !o.stor.SupportsCOW() {
		return fmt.Errorf("%w: snapshots require a COW-capable storage backend", storage.ErrUnsupported)
	}
	j := o.fleet.JailByName(jailName)
	if j == nil {
		return fmt.Errorf("%w: %s", ErrUnknownJail, jailName)
	}
	return o.stor.Destroy(o.resolvePath(j)+"@"+snapName, false)
}

// Clone materializes a new, independent dataset at newName's jail root
// from srcJail's snapshot snapName, the zfs-clone counterpart to Build's
// own base-release clone. It does not register newName as a Jail Spec —
// this fleet's jails are declared in the Fleet Config document, not
// created ad hoc — so the caller still has to add a Jail Spec naming
// newName (with storage_backend matching this backend) before `up` will
// bring it to Running. Clone only has to make the dataset exist first.
func (o *Orchestrator) Clone(srcJail, snapName, newName string) (string, error) {
	if !o.stor.SupportsCOW() {
		return "", fmt.Errorf("%w: clone requires a COW-capable storage backend", storage.ErrUnsupported)
	}
	if err := config.ValidateName(newName); err != nil {
		return "", err
	}
	src := o.fleet.JailByName(srcJail)
	if src == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownJail, srcJail)
	}

	srcSnapshot := o.resolvePath(src) + "@" + snapName
	dst := o.layout.JailRoot(newName)
	if err := o.stor.Clone(srcSnapshot, dst); err != nil {
		return "", err
	}
	return dst, nil
}
