package mynet

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/netip"
	"strings"

	"github.com/go-logr/logr"
	"github.com/k1sta/wakebot/pkg/addr"
)

// ArpEntry is one resolved row of the kernel address-resolution table.
type ArpEntry struct {
	IP     netip.Addr
	MAC    net.HardwareAddr
	Device string
}

// ArpCache looks MAC addresses up in the local address-resolution table. It
// never sends anything on the wire: hosts the kernel has not seen traffic from
// are not found.
type ArpCache struct {
	log   logr.Logger
	table func(ctx context.Context) ([]ArpEntry, error)
}

func NewArpCache(log logr.Logger) *ArpCache {
	return &ArpCache{
		log:   log.WithName("ArpCache"),
		table: readArpTable,
	}
}

// ResolveMAC returns the canonical MAC of ip if the table has a complete
// entry for it.
func (c *ArpCache) ResolveMAC(ctx context.Context, ip string) (string, bool) {
	target, err := netip.ParseAddr(ip)
	if err != nil || !target.Is4() {
		return "", false
	}
	entries, err := c.table(ctx)
	if err != nil {
		c.log.Error(err, "Failed to read ARP table")
		return "", false
	}
	for _, e := range entries {
		if e.IP == target {
			mac := addr.FormatMAC(e.MAC)
			c.log.V(1).Info("Resolved MAC from ARP table", "ip", ip, "mac", mac, "device", e.Device)
			return mac, true
		}
	}
	c.log.V(1).Info("IP not in ARP table", "ip", ip)
	return "", false
}

// parseProcNetArp reads the Linux /proc/net/arp format:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
func parseProcNetArp(r io.Reader) ([]ArpEntry, error) {
	entries := make([]ArpEntry, 0)
	scanner := bufio.NewScanner(r)
	// header
	scanner.Scan()
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		// 0x0 marks an incomplete entry
		if fields[2] == "0x0" {
			continue
		}
		e, ok := entry(fields[0], fields[3])
		if !ok {
			continue
		}
		if len(fields) >= 6 {
			e.Device = fields[5]
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// parseArpAn reads BSD/macOS `arp -an` output:
//
//	? (192.168.1.1) at a:b:c:d:e:f on en0 ifscope [ethernet]
//	? (192.168.1.7) at (incomplete) on en0 ifscope [ethernet]
func parseArpAn(r io.Reader) ([]ArpEntry, error) {
	entries := make([]ArpEntry, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[2] != "at" {
			continue
		}
		ip := strings.Trim(fields[1], "()")
		e, ok := entry(ip, padMAC(fields[3]))
		if !ok {
			continue
		}
		if len(fields) >= 6 && fields[4] == "on" {
			e.Device = fields[5]
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func entry(ip string, mac string) (ArpEntry, bool) {
	a, err := netip.ParseAddr(ip)
	if err != nil || !a.Is4() {
		return ArpEntry{}, false
	}
	hw, err := net.ParseMAC(mac)
	if err != nil || len(hw) != 6 || isZero(hw) {
		return ArpEntry{}, false
	}
	return ArpEntry{IP: a, MAC: hw}, true
}

func isZero(hw net.HardwareAddr) bool {
	for _, b := range hw {
		if b != 0 {
			return false
		}
	}
	return true
}

// padMAC turns the BSD short form a:b:c:d:e:f into 0a:0b:0c:0d:0e:0f.
func padMAC(s string) string {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return s
	}
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	return strings.Join(parts, ":")
}
