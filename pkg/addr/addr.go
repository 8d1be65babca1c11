// Package addr validates and normalizes the textual IPv4 and MAC addresses
// operators type when registering hosts.
package addr

import (
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strings"
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// ValidIPv4 reports whether s is a dotted-quad IPv4 address with four decimal
// octets in [0,255] and nothing else around it.
func ValidIPv4(s string) bool {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return ip.Is4()
}

// ValidMAC reports whether s is six colon-separated two-digit hex groups.
// Case is not significant.
func ValidMAC(s string) bool {
	return macPattern.MatchString(s)
}

// CanonicalMAC returns the storage form of a MAC literal: uppercase hex.
func CanonicalMAC(s string) string {
	return strings.ToUpper(s)
}

// FormatMAC renders a 6-byte hardware address in canonical form.
func FormatMAC(hw net.HardwareAddr) string {
	if len(hw) != 6 {
		return ""
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", hw[0], hw[1], hw[2], hw[3], hw[4], hw[5])
}

// ParseMAC parses a canonical or lowercase MAC literal into its 6 bytes.
func ParseMAC(s string) (net.HardwareAddr, error) {
	if !ValidMAC(s) {
		return nil, fmt.Errorf("invalid MAC address %q", s)
	}
	return net.ParseMAC(s)
}

// NormalizeMAC accepts the looser forms found on device labels and in vendor
// tools ("E8E07EA60C6F", "e8-e0-7e-a6-0c-6f") and returns the canonical form.
// Input that does not hold exactly 12 hex digits is returned trimmed and
// uppercased, so that ValidMAC still rejects it.
func NormalizeMAC(in string) string {
	m := strings.ToUpper(strings.TrimSpace(in))
	if ValidMAC(m) {
		return m
	}
	hex := make([]byte, 0, 12)
	for i := 0; i < len(m); i++ {
		c := m[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'F':
			hex = append(hex, c)
		case c == ':' || c == '-' || c == '.':
		default:
			return m
		}
	}
	if len(hex) != 12 {
		return m
	}
	var b strings.Builder
	for i, c := range hex {
		if i > 0 && i%2 == 0 {
			b.WriteByte(':')
		}
		b.WriteByte(c)
	}
	return b.String()
}
