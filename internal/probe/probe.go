// Package probe checks whether a host answers ICMP echo requests.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const DefaultTimeout = time.Second

var payload = []byte("wakebot-probe")

var sequence atomic.Uint32

// Pinger sends ICMP echo requests, using an unprivileged datagram socket when
// the system allows it and a raw socket otherwise.
type Pinger struct {
	log     logr.Logger
	timeout time.Duration
	id      int
}

func NewPinger(log logr.Logger, timeout time.Duration) *Pinger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pinger{
		log:     log.WithName("Pinger"),
		timeout: timeout,
		id:      os.Getpid() & 0xffff,
	}
}

// Probe sends up to count echo requests to ip, each waiting at most the
// configured timeout, and reports whether any was answered.
func (p *Pinger) Probe(ctx context.Context, ip string, count int) bool {
	if count <= 0 {
		count = 1
	}
	dst, err := netip.ParseAddr(ip)
	if err != nil || !dst.Is4() {
		p.log.Info("Not probing invalid address", "ip", ip)
		return false
	}

	conn, network, err := listen()
	if err != nil {
		p.log.Error(err, "Failed to open ICMP socket")
		return false
	}
	defer conn.Close()

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return false
		}
		ok, err := p.echo(ctx, conn, network, dst)
		if err != nil {
			p.log.V(1).Info("Echo failed", "ip", ip, "error", err.Error())
		}
		if ok {
			p.log.V(1).Info("Host is up", "ip", ip)
			return true
		}
	}
	p.log.V(1).Info("Host is down", "ip", ip)
	return false
}

func listen() (*icmp.PacketConn, string, error) {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err == nil {
		return conn, "udp4", nil
	}
	raw, rawErr := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if rawErr != nil {
		return nil, "", errors.Join(err, rawErr)
	}
	return raw, "ip4:icmp", nil
}

func (p *Pinger) echo(ctx context.Context, conn *icmp.PacketConn, network string, dst netip.Addr) (bool, error) {
	seq := int(sequence.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: payload},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		return false, err
	}

	var to net.Addr = &net.IPAddr{IP: net.IP(dst.AsSlice())}
	if network == "udp4" {
		to = &net.UDPAddr{IP: net.IP(dst.AsSlice())}
	}
	if _, err := conn.WriteTo(b, to); err != nil {
		return false, fmt.Errorf("write echo: %w", err)
	}

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return false, err
	}

	buf := make([]byte, 1500)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return false, err
		}
		if !sameHost(from, dst) {
			continue
		}
		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), buf[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		// the kernel rewrites the identifier of unprivileged sockets
		if body, ok := reply.Body.(*icmp.Echo); ok && body.Seq == seq {
			return true, nil
		}
	}
}

func sameHost(from net.Addr, dst netip.Addr) bool {
	var ip net.IP
	switch a := from.(type) {
	case *net.UDPAddr:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return false
	}
	got, ok := netip.AddrFromSlice(ip)
	return ok && got.Unmap() == dst
}
