package wol

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicPacket(t *testing.T) {
	mac := net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x01}
	p := MagicPacket(mac)

	require.Len(t, p, MagicPacketSize)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), p[:6])
	for i := 0; i < 16; i++ {
		off := 6 + i*6
		assert.Equal(t, []byte(mac), p[off:off+6], "repetition %d", i)
	}
}

func TestWakeSendsPacket(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	s := NewSender(testr.New(t), "127.0.0.1", port)
	require.Equal(t, "127.0.0.1:"+strconv.Itoa(port), s.Target())
	require.NoError(t, s.Wake(context.Background(), "aa:bb:cc:dd:ee:01"))

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, MagicPacket(net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x01}), buf[:n])
}

func TestWakeRejectsBadMAC(t *testing.T) {
	s := NewSender(testr.New(t), "127.0.0.1", 9)
	err := s.Wake(context.Background(), "AABBCCDDEE01")
	assert.ErrorIs(t, err, ErrInvalidMAC)
}

func TestNewSenderDefaults(t *testing.T) {
	s := NewSender(testr.New(t), "", 0)
	assert.Equal(t, "255.255.255.255:9", s.Target())
}
