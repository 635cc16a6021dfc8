package netplan

import (
	"fmt"

	"github.com/jailfleet/jailfleet/internal/config"
)

// AnchorName is the single top-level PF anchor every jail's port rules live
// under. Rule ids are scoped by jail name underneath it, never by a
// per-jail anchor of their own — the anchor
// itself is one fixed, globally-shared name.
const AnchorName = "jailfleet"

// AnchorRule is one exposed-port forwarding rule inside the anchor.
type AnchorRule struct {
	ID           string // scoped by jail name, e.g. "web/8080-tcp"
	Jail         string
	Proto        config.Protocol
	BindIP       string // empty means "any"
	HostPort     int
	JailIP       string
	InternalPort int
}

// BuildRule produces the AnchorRule for one exposed port once the jail's
// address is known.
func BuildRule(jail string, port config.ExposedPort, jailIP string) AnchorRule {
	return AnchorRule{
		ID:           fmt.Sprintf("%s/%d-%s", jail, port.HostPort, port.Protocol),
		Jail:         jail,
		Proto:        port.Protocol,
		BindIP:       port.HostIP,
		HostPort:     port.HostPort,
		JailIP:       jailIP,
		InternalPort: port.InternalPort,
	}
}

// Render formats the rule body exactly in the shape the anchor requires:
// "{proto} from {bind_ip or any} to (egress) port {host_port} -> {jail_ip} port {internal_port}".
func (r AnchorRule) Render() string {
	bind := r.BindIP
	if bind == "" {
		bind = "any"
	}
	return fmt.Sprintf("%s from %s to (egress) port %d -> %s port %d",
		r.Proto, bind, r.HostPort, r.JailIP, r.InternalPort)
}

// RenderAnchor joins every rule's body into the full anchor file contents,
// one rule per line, in the order given.
func RenderAnchor(rules []AnchorRule) string {
	out := ""
	for _, r := range rules {
		out += r.Render() + "\n"
	}
	return out
}
