package hosts

import (
	"strings"

	"github.com/go-logr/logr"

	"github.com/k1sta/wakebot/pkg/addr"
)

// Registry is the ordered host list. Insertion order is display and
// persistence order. It is not safe for concurrent use: the engine serves one
// command at a time.
type Registry struct {
	log      logr.Logger
	hosts    []Host
	capacity int
}

func NewRegistry(log logr.Logger, capacity int) *Registry {
	if capacity <= 0 {
		capacity = MaxHosts
	}
	return &Registry{
		log:      log.WithName("Registry"),
		hosts:    make([]Host, 0, capacity),
		capacity: capacity,
	}
}

func (r *Registry) Len() int {
	return len(r.hosts)
}

func (r *Registry) Capacity() int {
	return r.capacity
}

func (r *Registry) Full() bool {
	return len(r.hosts) >= r.capacity
}

// FindConflict scans hosts in order and reports the first collision, checking
// name, then IP, then MAC of each entry. Name and MAC compare
// case-insensitively.
func (r *Registry) FindConflict(name, ip, mac string) Conflict {
	for _, h := range r.hosts {
		if strings.EqualFold(h.Name, name) {
			return NameConflict
		}
		if h.IP == ip {
			return IPConflict
		}
		if strings.EqualFold(h.MAC, mac) {
			return MACConflict
		}
	}
	return NoConflict
}

// Add appends h, failing only when the registry is full. Callers validate
// syntax and check FindConflict first.
func (r *Registry) Add(h Host) bool {
	if r.Full() {
		r.log.Info("Registry is full", "capacity", r.capacity, "host", h.Name)
		return false
	}
	r.hosts = append(r.hosts, h)
	r.log.Info("Added host", "name", h.Name, "ip", h.IP, "mac", h.MAC, "count", len(r.hosts))
	return true
}

// Remove deletes the first host whose name matches case-insensitively,
// keeping the order of the others.
func (r *Registry) Remove(name string) (Host, bool) {
	for i, h := range r.hosts {
		if strings.EqualFold(h.Name, name) {
			r.hosts = append(r.hosts[:i], r.hosts[i+1:]...)
			r.log.Info("Removed host", "name", h.Name, "count", len(r.hosts))
			return h, true
		}
	}
	return Host{}, false
}

// FindByName looks a host up by name, case-insensitively.
func (r *Registry) FindByName(name string) (Host, bool) {
	for _, h := range r.hosts {
		if strings.EqualFold(h.Name, name) {
			return h, true
		}
	}
	return Host{}, false
}

// FindByMAC looks a host up by hardware address, case-insensitively.
func (r *Registry) FindByMAC(mac string) (Host, bool) {
	for _, h := range r.hosts {
		if strings.EqualFold(h.MAC, mac) {
			return h, true
		}
	}
	return Host{}, false
}

// List returns a snapshot of the hosts in insertion order.
func (r *Registry) List() []Host {
	out := make([]Host, len(r.hosts))
	copy(out, r.hosts)
	return out
}

// Reset replaces the content with hosts, dropping invalid entries, entries
// that conflict with an earlier one and any beyond capacity. MACs are stored in
// canonical form, as Add callers do.
func (r *Registry) Reset(hosts []Host) {
	r.hosts = r.hosts[:0]
	for _, h := range hosts {
		h.MAC = addr.CanonicalMAC(h.MAC)
		if err := h.Validate(); err != nil {
			r.log.Info("Skipping invalid host", "host", h, "reason", err.Error())
			continue
		}
		if c := r.FindConflict(h.Name, h.IP, h.MAC); c != NoConflict {
			r.log.Info("Skipping duplicate host", "host", h, "conflict", c.String())
			continue
		}
		if r.Full() {
			r.log.Info("Truncating host list at capacity", "capacity", r.capacity, "dropped", h.Name)
			continue
		}
		r.hosts = append(r.hosts, h)
	}
}
