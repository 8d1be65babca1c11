package hosts

import (
	"fmt"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func host(i int) Host {
	return Host{
		Name: fmt.Sprintf("host%d", i),
		IP:   fmt.Sprintf("10.0.0.%d", i+1),
		MAC:  fmt.Sprintf("AA:BB:CC:DD:EE:%02X", i),
	}
}

func filled(t *testing.T, n int) *Registry {
	r := NewRegistry(testr.New(t), MaxHosts)
	for i := 0; i < n; i++ {
		require.True(t, r.Add(host(i)))
	}
	return r
}

func TestAddThenConflict(t *testing.T) {
	r := filled(t, 3)
	h := Host{Name: "web1", IP: "10.0.0.50", MAC: "AA:BB:CC:DD:EE:50"}

	require.Equal(t, NoConflict, r.FindConflict(h.Name, h.IP, h.MAC))
	require.True(t, r.Add(h))
	assert.NotEqual(t, NoConflict, r.FindConflict(h.Name, h.IP, h.MAC))
}

func TestFindConflictKinds(t *testing.T) {
	r := filled(t, 2)

	assert.Equal(t, NameConflict, r.FindConflict("HOST0", "10.9.9.9", "00:00:00:00:00:09"))
	assert.Equal(t, IPConflict, r.FindConflict("other", "10.0.0.2", "00:00:00:00:00:09"))
	assert.Equal(t, MACConflict, r.FindConflict("other", "10.9.9.9", "aa:bb:cc:dd:ee:01"))
	assert.Equal(t, NoConflict, r.FindConflict("other", "10.9.9.9", "00:00:00:00:00:09"))
}

func TestFindConflictOrder(t *testing.T) {
	r := filled(t, 2)
	// name of host1 and IP of host0: host0 is scanned first and reports its IP
	assert.Equal(t, IPConflict, r.FindConflict("host1", "10.0.0.1", "00:00:00:00:00:09"))
	// name and IP of the same host: name wins
	assert.Equal(t, NameConflict, r.FindConflict("host0", "10.0.0.1", "AA:BB:CC:DD:EE:00"))
}

func TestAddAtCapacity(t *testing.T) {
	r := filled(t, MaxHosts)
	before := r.List()

	assert.False(t, r.Add(Host{Name: "extra", IP: "10.1.1.1", MAC: "00:11:22:33:44:55"}))
	assert.Equal(t, before, r.List())
	assert.True(t, r.Full())
}

func TestRemoveIsCaseInsensitiveAndKeepsOrder(t *testing.T) {
	r := NewRegistry(testr.New(t), MaxHosts)
	require.True(t, r.Add(Host{Name: "first", IP: "10.0.0.1", MAC: "AA:BB:CC:DD:EE:01"}))
	require.True(t, r.Add(Host{Name: "alpha", IP: "10.0.0.2", MAC: "AA:BB:CC:DD:EE:02"}))
	require.True(t, r.Add(Host{Name: "last", IP: "10.0.0.3", MAC: "AA:BB:CC:DD:EE:03"}))

	removed, ok := r.Remove("Alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", removed.Name)

	names := []string{}
	for _, h := range r.List() {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"first", "last"}, names)

	_, ok = r.Remove("alpha")
	assert.False(t, ok)
}

func TestFindByName(t *testing.T) {
	r := filled(t, 2)

	h, ok := r.FindByName("HoSt1")
	require.True(t, ok)
	assert.Equal(t, "host1", h.Name)

	h, ok = r.FindByMAC("aa:bb:cc:dd:ee:01")
	require.True(t, ok)
	assert.Equal(t, "host1", h.Name)
	_, ok = r.FindByMAC("AA:BB:CC:DD:EE:99")
	assert.False(t, ok)

	_, ok = r.FindByName("missing")
	assert.False(t, ok)
}

func TestListIsSnapshot(t *testing.T) {
	r := filled(t, 1)
	l := r.List()
	l[0].Name = "mutated"
	h, ok := r.FindByName("host0")
	require.True(t, ok)
	assert.Equal(t, "host0", h.Name)
}

func TestResetDropsInvalidDuplicatesAndOverflow(t *testing.T) {
	r := NewRegistry(testr.New(t), MaxHosts)
	in := []Host{
		host(0),
		{Name: "bad-ip", IP: "10.0.0.300", MAC: "00:00:00:00:00:01"},
		{Name: "HOST0", IP: "10.0.0.99", MAC: "00:00:00:00:00:02"},
		{Name: "", IP: "10.0.0.98", MAC: "00:00:00:00:00:03"},
	}
	for i := 1; i < MaxHosts+3; i++ {
		in = append(in, host(i))
	}
	r.Reset(in)

	require.Equal(t, MaxHosts, r.Len())
	for i, h := range r.List() {
		assert.Equal(t, host(i), h)
	}
}

func TestResetCanonicalizesMAC(t *testing.T) {
	r := NewRegistry(testr.New(t), MaxHosts)
	r.Reset([]Host{
		{Name: "pc", IP: "10.0.0.9", MAC: "aa:bb:cc:dd:ee:ff"},
		{Name: "laptop", IP: "10.0.0.10", MAC: "AA:BB:CC:DD:EE:FF"},
	})

	assert.Equal(t, []Host{{Name: "pc", IP: "10.0.0.9", MAC: "AA:BB:CC:DD:EE:FF"}}, r.List())
	assert.Equal(t, MaxHosts, r.Capacity())
}
