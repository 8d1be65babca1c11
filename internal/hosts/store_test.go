package hosts

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/k1sta/wakebot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBlob struct {
	data     map[string][]byte
	readErr  error
	writeErr error
}

func newMemBlob() *memBlob {
	return &memBlob{data: make(map[string][]byte)}
}

func (m *memBlob) Read(ctx context.Context, path string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	d, ok := m.data[path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func (m *memBlob) Write(ctx context.Context, path string, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[path] = append([]byte(nil), data...)
	return nil
}

func (m *memBlob) Close() error { return nil }

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for n := 0; n <= MaxHosts; n++ {
		s := NewStore(testr.New(t), newMemBlob(), "")
		in := filled(t, n).List()

		require.NoError(t, s.Save(ctx, in))
		out, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, in, out, "n=%d", n)
	}
}

func TestSaveFormat(t *testing.T) {
	b := newMemBlob()
	s := NewStore(testr.New(t), b, "")
	require.NoError(t, s.Save(context.Background(), []Host{{Name: "web1", IP: "10.0.0.5", MAC: "AA:BB:CC:DD:EE:01"}}))
	assert.JSONEq(t, `[{"name":"web1","ip":"10.0.0.5","mac":"AA:BB:CC:DD:EE:01"}]`, string(b.data[DefaultPath]))

	require.NoError(t, s.Save(context.Background(), nil))
	assert.Equal(t, `[]`, string(b.data[DefaultPath]))
}

func TestLoadMissingOrCorrupt(t *testing.T) {
	ctx := context.Background()
	for name, content := range map[string][]byte{
		"missing":   nil,
		"garbage":   []byte("{not json"),
		"object":    []byte(`{"name":"x"}`),
		"truncated": []byte(`[{"name":"x","ip":"1.2.3.4"`),
		"null":      []byte(`null`),
	} {
		t.Run(name, func(t *testing.T) {
			b := newMemBlob()
			if content != nil {
				b.data[DefaultPath] = content
			}
			hosts, err := NewStore(testr.New(t), b, "").Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, hosts)
		})
	}
}

func TestLoadTruncatesAtCapacity(t *testing.T) {
	ctx := context.Background()
	b := newMemBlob()
	s := NewStore(testr.New(t), b, "")

	big := make([]Host, 0, MaxHosts+5)
	for i := 0; i < MaxHosts+5; i++ {
		big = append(big, host(i))
	}
	require.NoError(t, s.Save(ctx, big))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, big[:MaxHosts], out)
}

func TestLoadIntoNeverFails(t *testing.T) {
	b := newMemBlob()
	b.readErr = errors.New("disk on fire")
	r := filled(t, 2)

	NewStore(testr.New(t), b, "").LoadInto(context.Background(), r)
	assert.Equal(t, 0, r.Len())
}

func TestSaveReportsWriteError(t *testing.T) {
	b := newMemBlob()
	b.writeErr = errors.New("read-only")
	err := NewStore(testr.New(t), b, "").Save(context.Background(), filled(t, 1).List())
	assert.Error(t, err)
}
