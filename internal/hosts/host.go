// Package hosts holds the bounded, ordered registry of wakeable LAN hosts and
// its persisted form.
package hosts

import (
	"fmt"

	"github.com/k1sta/wakebot/pkg/addr"
)

// MaxHosts is the fixed capacity of the registry.
const MaxHosts = 10

type Host struct {
	Name string `json:"name" yaml:"name"`
	IP   string `json:"ip" yaml:"ip"`
	MAC  string `json:"mac" yaml:"mac"`
}

func (h Host) String() string {
	return fmt.Sprintf("%s (%s, %s)", h.Name, h.IP, h.MAC)
}

// Validate checks the host fields syntactically.
func (h Host) Validate() error {
	if h.Name == "" {
		return fmt.Errorf("empty host name")
	}
	if !addr.ValidIPv4(h.IP) {
		return fmt.Errorf("invalid IP address %q", h.IP)
	}
	if !addr.ValidMAC(h.MAC) {
		return fmt.Errorf("invalid MAC address %q", h.MAC)
	}
	return nil
}

// Conflict names the first field of a candidate host that collides with a
// registered one.
type Conflict int

const (
	NoConflict Conflict = iota
	NameConflict
	IPConflict
	MACConflict
)

func (c Conflict) String() string {
	switch c {
	case NoConflict:
		return "none"
	case NameConflict:
		return "name"
	case IPConflict:
		return "ip"
	case MACConflict:
		return "mac"
	default:
		return fmt.Sprintf("Conflict(%d)", int(c))
	}
}
