package mynet

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procSample = `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
192.168.1.20     0x1         0x0         00:00:00:00:00:00     *        eth0
192.168.1.30     0x1         0x2         00:11:22:33:44:55     *        wlan0
garbage
`

func TestParseProcNetArp(t *testing.T) {
	entries, err := parseProcNetArp(strings.NewReader(procSample))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, netip.MustParseAddr("192.168.1.1"), entries[0].IP)
	assert.Equal(t, net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, entries[0].MAC)
	assert.Equal(t, "eth0", entries[0].Device)
	assert.Equal(t, "wlan0", entries[1].Device)
}

const bsdSample = `? (192.168.1.1) at a:b:c:d:e:f on en0 ifscope [ethernet]
? (192.168.1.7) at (incomplete) on en0 ifscope [ethernet]
? (192.168.1.9) at 0:11:22:33:44:55 on en0 ifscope permanent [ethernet]
`

func TestParseArpAn(t *testing.T) {
	entries, err := parseArpAn(strings.NewReader(bsdSample))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, net.HardwareAddr{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f}, entries[0].MAC)
	assert.Equal(t, netip.MustParseAddr("192.168.1.9"), entries[1].IP)
	assert.Equal(t, "en0", entries[1].Device)
}

func TestResolveMAC(t *testing.T) {
	c := NewArpCache(testr.New(t))
	c.table = func(ctx context.Context) ([]ArpEntry, error) {
		return parseProcNetArp(strings.NewReader(procSample))
	}
	ctx := context.Background()

	mac, ok := c.ResolveMAC(ctx, "192.168.1.1")
	require.True(t, ok)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", mac)

	_, ok = c.ResolveMAC(ctx, "192.168.1.20")
	assert.False(t, ok, "incomplete entries are not resolved")

	_, ok = c.ResolveMAC(ctx, "192.168.1.99")
	assert.False(t, ok)

	_, ok = c.ResolveMAC(ctx, "not-an-ip")
	assert.False(t, ok)
}

func TestResolveMACTableError(t *testing.T) {
	c := NewArpCache(testr.New(t))
	c.table = func(ctx context.Context) ([]ArpEntry, error) {
		return nil, errors.New("permission denied")
	}
	_, ok := c.ResolveMAC(context.Background(), "192.168.1.1")
	assert.False(t, ok)
}

func TestBroadcastAddr(t *testing.T) {
	_, nw, err := net.ParseCIDR("192.168.1.37/24")
	require.NoError(t, err)
	nw.IP = net.ParseIP("192.168.1.37")
	assert.Equal(t, "192.168.1.255", BroadcastAddr(nw).String())

	_, nw, err = net.ParseCIDR("10.1.2.3/20")
	require.NoError(t, err)
	assert.Equal(t, "10.1.15.255", BroadcastAddr(nw).String())

	_, nw, err = net.ParseCIDR("fe80::1/64")
	require.NoError(t, err)
	assert.Nil(t, BroadcastAddr(nw))
}
