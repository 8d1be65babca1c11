package ctl

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k1sta/wakebot/internal/engine"
	"github.com/k1sta/wakebot/internal/storage"
	"github.com/k1sta/wakebot/internal/wol"
	"github.com/k1sta/wakebot/wakebot/options"
)

func testConfig(t *testing.T, backend string) *options.Config {
	path := t.TempDir()
	if backend == storage.BackendSQLite {
		path += "/wakebot.db"
	}
	return &options.Config{
		Storage: options.StorageConfig{Backend: backend, Path: path},
		Probe:   options.ProbeConfig{Timeout: 50 * time.Millisecond, Count: 1},
		Wol:     options.WolConfig{Broadcast: "127.0.0.1", Port: 9},
	}
}

func testContext(t *testing.T) context.Context {
	return logr.NewContext(context.Background(), testr.New(t))
}

func TestAddListRemove(t *testing.T) {
	for _, backend := range []string{storage.BackendFile, storage.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := testContext(t)
			cfg := testConfig(t, backend)
			var out bytes.Buffer

			s, err := open(ctx, cfg, &out)
			require.NoError(t, err)
			require.NoError(t, s.run(ctx, engine.CmdAdd, "nas", "192.168.1.20", "aa:bb:cc:dd:ee:20"))
			require.NoError(t, s.Close())
			assert.Equal(t, "Host added: nas (192.168.1.20, AA:BB:CC:DD:EE:20)\n", out.String())

			// A new session sees the persisted host.
			s, err = open(ctx, cfg, &out)
			require.NoError(t, err)
			list := listHosts(ctx, s, false)
			require.Len(t, list, 1)
			assert.Equal(t, "nas", list[0].Name)
			assert.Nil(t, list[0].Up)

			out.Reset()
			assert.ErrorIs(t, s.run(ctx, engine.CmdAdd, "nas2", "192.168.1.20", "AA:BB:CC:DD:EE:21"), engine.ErrRejected)
			assert.Equal(t, "A host with this IP already exists.\n", out.String())

			out.Reset()
			require.NoError(t, s.run(ctx, engine.CmdRemove, "NAS"))
			assert.Equal(t, "Host 'nas' removed.\n", out.String())
			require.NoError(t, s.Close())

			s, err = open(ctx, cfg, &out)
			require.NoError(t, err)
			defer s.Close()
			assert.Empty(t, listHosts(ctx, s, false))
		})
	}
}

func TestListWithProbe(t *testing.T) {
	ctx := testContext(t)
	var out bytes.Buffer
	s, err := open(ctx, testConfig(t, storage.BackendFile), &out)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.run(ctx, engine.CmdAdd, "ghost", "192.0.2.1", "AA:BB:CC:DD:EE:01"))
	list := listHosts(ctx, s, true)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Up)
	assert.False(t, *list[0].Up)
}

func TestWakeByMAC(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	ctx := testContext(t)
	cfg := testConfig(t, storage.BackendFile)
	cfg.Wol.Port = conn.LocalAddr().(*net.UDPAddr).Port
	var out bytes.Buffer
	s, err := open(ctx, cfg, &out)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, wake(ctx, s, "aa:bb:cc:dd:ee:ff"))
	assert.Equal(t, "Wake-on-LAN packet sent to AA:BB:CC:DD:EE:FF.\n", out.String())

	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, wol.MagicPacketSize, n)
}

func TestWakeByName(t *testing.T) {
	ctx := testContext(t)
	var out bytes.Buffer
	s, err := open(ctx, testConfig(t, storage.BackendFile), &out)
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, wake(ctx, s, "tv"), engine.ErrRejected)
	assert.Equal(t, "Host not found.\n", out.String())

	require.NoError(t, s.run(ctx, engine.CmdAdd, "tv", "10.0.0.3", "AA:BB:CC:DD:EE:03"))
	out.Reset()
	require.NoError(t, wake(ctx, s, "TV"))
	assert.Equal(t, "Wake-on-LAN packet sent to tv.\n", out.String())
}

func TestWakeRegisteredMAC(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	ctx := testContext(t)
	cfg := testConfig(t, storage.BackendFile)
	cfg.Wol.Port = conn.LocalAddr().(*net.UDPAddr).Port
	var out bytes.Buffer
	s, err := open(ctx, cfg, &out)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.run(ctx, engine.CmdAdd, "tv", "10.0.0.3", "AA:BB:CC:DD:EE:03"))
	out.Reset()
	require.NoError(t, wake(ctx, s, "aa-bb-cc-dd-ee-03"))
	assert.Equal(t, "Wake-on-LAN packet sent to tv.\n", out.String())
}

func TestNamesAreNotResplit(t *testing.T) {
	ctx := testContext(t)
	var out bytes.Buffer
	s, err := open(ctx, testConfig(t, storage.BackendFile), &out)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.run(ctx, engine.CmdAdd, "pc", "10.0.0.9", "AA:BB:CC:DD:EE:09"))

	out.Reset()
	assert.ErrorIs(t, s.run(ctx, engine.CmdRemove, "my pc"), engine.ErrRejected)
	assert.Equal(t, "Host not found.\n", out.String())

	out.Reset()
	assert.ErrorIs(t, s.run(ctx, engine.CmdAdd, "my pc", "10.0.0.10", "AA:BB:CC:DD:EE:10"), engine.ErrRejected)
	assert.Equal(t, "Invalid host name.\n", out.String())
	assert.Len(t, listHosts(ctx, s, false), 1)
}
