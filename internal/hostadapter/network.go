package hostadapter

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/jailfleet/jailfleet/internal/netplan"
)

// netBackend isolates the netlink calls behind an interface; jailHost.net
// holds the netlink-backed implementation New wires in.
type netBackend interface {
	createBridge(name string) error
	destroyBridge(name string) error
	createEpair(existing []string) (a, b string, err error)
	destroyInterface(name string) error
	attachToBridge(bridge, iface string) error
	setIPv4(iface, ip, gateway string) error
	setMAC(iface, mac string) error
	existingInterfaces() ([]string, error)
}

// netlinkBackend adapts interface-pair/bridge management onto
// github.com/vishvananda/netlink: one epair member attached per jail,
// instead of the one-tap-per-VM attachment a hypervisor bridge would use.
type netlinkBackend struct{}

func (netlinkBackend) createBridge(name string) error {
	if _, err := netlink.LinkByName(name); err == nil {
		return nil // idempotent
	}
	la := netlink.NewLinkAttrs()
	la.Name = name
	br := &netlink.Bridge{LinkAttrs: la}
	if err := netlink.LinkAdd(br); err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeCreateFailed, err)
	}
	return netlink.LinkSetUp(br)
}

func (netlinkBackend) destroyBridge(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil // already gone
	}
	return netlink.LinkDel(link)
}

func (netlinkBackend) createEpair(existing []string) (string, string, error) {
	a, b, err := netplan.NextEpairName(existing)
	if err != nil {
		return "", "", err
	}

	la := netlink.NewLinkAttrs()
	la.Name = a
	peer := &netlink.Veth{LinkAttrs: la, PeerName: b}
	if err := netlink.LinkAdd(peer); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrEpairCreateFailed, err)
	}
	return a, b, nil
}

func (netlinkBackend) destroyInterface(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil
	}
	return netlink.LinkDel(link)
}

func (netlinkBackend) attachToBridge(bridge, iface string) error {
	br, err := netlink.LinkByName(bridge)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBridgeNotFound, bridge)
	}
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInterfaceNotFound, iface)
	}
	if err := netlink.LinkSetMaster(link, br); err != nil {
		return fmt.Errorf("attach %s to %s: %w", iface, bridge, err)
	}
	return netlink.LinkSetUp(link)
}

func (netlinkBackend) setIPv4(iface, ip, gateway string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInterfaceNotFound, iface)
	}
	addr, err := netlink.ParseAddr(ip + "/24")
	if err != nil {
		return fmt.Errorf("parse address %s: %w", ip, err)
	}
	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("set address on %s: %w", iface, err)
	}
	// the gateway feeds EnableDevNAT's iptables rules, which cmd/fleetd
	// reads from the jail's config (the bridge itself plays gateway
	// there), and isn't programmed as a
	// route here: a jail's own default route is set from inside the jail
	// by its network setup, not by the host-side address assignment on
	// the epair end that terminates at the bridge.
	_ = gateway
	return netlink.LinkSetUp(link)
}

func (netlinkBackend) setMAC(iface, mac string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInterfaceNotFound, iface)
	}
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("parse mac %s: %w", mac, err)
	}
	return netlink.LinkSetHardwareAddr(link, hw)
}

func (netlinkBackend) existingInterfaces() ([]string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Attrs().Name)
	}
	return names, nil
}

func (h *jailHost) CreateBridge(ctx context.Context, name string) error {
	err := h.net.createBridge(name)
	if err == nil {
		h.log.InfoContext(ctx, "bridge ensured", "bridge", name)
	}
	return err
}

func (h *jailHost) DestroyBridge(ctx context.Context, name string) error {
	return h.net.destroyBridge(name)
}

func (h *jailHost) CreateEpair(ctx context.Context) (string, string, error) {
	existing, err := h.net.existingInterfaces()
	if err != nil {
		return "", "", err
	}
	a, b, err := h.net.createEpair(existing)
	if err == nil {
		h.log.InfoContext(ctx, "epair created", "a", a, "b", b)
	}
	return a, b, err
}

func (h *jailHost) DestroyInterface(ctx context.Context, name string) error {
	return h.net.destroyInterface(name)
}

func (h *jailHost) AttachToBridge(ctx context.Context, bridge, iface string) error {
	return h.net.attachToBridge(bridge, iface)
}

func (h *jailHost) SetIPv4(ctx context.Context, iface, ip, gateway string) error {
	return h.net.setIPv4(iface, ip, gateway)
}

func (h *jailHost) SetMAC(ctx context.Context, iface, mac string) error {
	return h.net.setMAC(iface, mac)
}

func (h *jailHost) ExistingInterfaces(ctx context.Context) ([]string, error) {
	return h.net.existingInterfaces()
}
