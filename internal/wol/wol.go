// Package wol sends Wake-on-LAN magic packets.
package wol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/k1sta/wakebot/pkg/addr"
)

// DefaultPort is the discard port conventionally used for magic packets.
const DefaultPort = 9

// MagicPacketSize is 6 bytes of 0xFF followed by 16 repetitions of the MAC.
const MagicPacketSize = 6 + 16*6

var ErrInvalidMAC = errors.New("invalid MAC address")

// MagicPacket builds the payload that wakes the interface with address mac.
func MagicPacket(mac net.HardwareAddr) []byte {
	packet := make([]byte, 0, MagicPacketSize)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, mac...)
	}
	return packet
}

// Sender broadcasts magic packets on the LAN.
type Sender struct {
	log       logr.Logger
	broadcast string
	port      int
	dial      func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewSender returns a Sender that broadcasts to broadcast:port. An empty
// broadcast uses the limited broadcast address.
func NewSender(log logr.Logger, broadcast string, port int) *Sender {
	if broadcast == "" {
		broadcast = net.IPv4bcast.String()
	}
	if port <= 0 {
		port = DefaultPort
	}
	var d net.Dialer
	return &Sender{
		log:       log.WithName("wol.Sender"),
		broadcast: broadcast,
		port:      port,
		dial:      d.DialContext,
	}
}

func (s *Sender) Target() string {
	return net.JoinHostPort(s.broadcast, strconv.Itoa(s.port))
}

// Wake sends one magic packet for mac. Delivery is not confirmed.
func (s *Sender) Wake(ctx context.Context, mac string) error {
	hw, err := addr.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}

	conn, err := s.dial(ctx, "udp4", s.Target())
	if err != nil {
		return fmt.Errorf("dial broadcast %s: %w", s.Target(), err)
	}
	defer conn.Close()

	n, err := conn.Write(MagicPacket(hw))
	if err != nil {
		return fmt.Errorf("send magic packet: %w", err)
	}
	s.log.Info("Magic packet sent", "mac", addr.FormatMAC(hw), "target", s.Target(), "bytes", n)
	return nil
}
