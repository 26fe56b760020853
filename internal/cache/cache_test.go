package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boss-spawn-board/internal/models"
)

const testKey = "pokemmo_monster_data"

var stamp = time.Date(2025, 2, 21, 15, 0, 0, 0, time.UTC)

func sampleEntry() *models.CacheEntry {
	return models.NewCacheEntry(stamp, []models.MonsterReport{
		{MonsterID: 49, RegionID: 0, LocationName: "10号道路", StartHour: 15, StartMinute: 29, EndHour: 16, EndMinute: 44},
	})
}

type failingBackend struct {
	getErr, setErr error
}

func (f failingBackend) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f failingBackend) Set(context.Context, string, []byte) error   { return f.setErr }

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	file, err := NewFile(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return map[string]Backend{
		"Memory": NewMemory(),
		"File":   file,
	}
}

func TestCache_WriteThenRead(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := New(b, zap.NewNop())
			ctx := context.Background()

			_, ok := c.Read(ctx, testKey)
			require.False(t, ok, "empty backend must read as absent")

			require.NoError(t, c.Write(ctx, testKey, sampleEntry()))

			got, ok := c.Read(ctx, testKey)
			require.True(t, ok)
			assert.Equal(t, sampleEntry(), got)
		})
	}
}

func TestCache_ReadFresh(t *testing.T) {
	c := New(NewMemory(), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, testKey, sampleEntry()))
	ttl := 30 * time.Minute

	_, ok := c.ReadFresh(ctx, testKey, ttl, stamp.Add(10*time.Minute))
	assert.True(t, ok)

	_, ok = c.ReadFresh(ctx, testKey, ttl, stamp.Add(31*time.Minute))
	assert.False(t, ok)

	_, ok = c.Read(ctx, testKey)
	assert.True(t, ok, "stale entries stay readable")
}

func TestCache_CorruptBytesReadAsAbsent(t *testing.T) {
	tests := map[string][]byte{
		"Not json":          []byte("{not json"),
		"Wrong shape":       []byte(`[1,2,3]`),
		"Missing timestamp": []byte(`{"data":[]}`),
		"Bad report":        []byte(`{"timestamp":1,"data":[{"monsterId":"x","startHour":1,"startMinute":1,"endHour":1,"endMinute":1}]}`),
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			b := NewMemory()
			require.NoError(t, b.Set(context.Background(), testKey, raw))

			_, ok := New(b, zap.NewNop()).Read(context.Background(), testKey)
			assert.False(t, ok)
		})
	}
}

func TestDecode_WrapsCorrupt(t *testing.T) {
	_, err := decode([]byte("garbage"))
	require.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestCache_BackendReadErrorIsAbsent(t *testing.T) {
	c := New(failingBackend{getErr: errors.New("connection refused")}, zap.NewNop())

	_, ok := c.Read(context.Background(), testKey)
	assert.False(t, ok)
}

func TestCache_WriteFailure(t *testing.T) {
	quota := errors.New("quota exceeded")
	c := New(failingBackend{setErr: quota}, zap.NewNop())

	err := c.Write(context.Background(), testKey, sampleEntry())

	var writeErr *StorageWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, testKey, writeErr.Key)
	assert.ErrorIs(t, err, quota)
}

func TestFileBackend_AtomicWriteLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, b.Set(context.Background(), testKey, []byte(`{"timestamp":1,"data":[]}`)))

	_, err = os.Stat(filepath.Join(dir, testKey+".json.tmp"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, testKey+".json"))
	assert.NoError(t, err)
}

func TestMemoryBackend_CopiesValues(t *testing.T) {
	b := NewMemory()
	v := []byte("abc")
	require.NoError(t, b.Set(context.Background(), "k", v))
	v[0] = 'x'

	got, err := b.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	_, err = b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	tests := map[string]struct {
		kind string

		wantErr bool
	}{
		"File":    {kind: "file"},
		"Memory":  {kind: "memory"},
		"Unknown": {kind: "etcd", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			backend, closeFn, err := Open(tc.kind, "", t.TempDir())
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, backend.Set(context.Background(), "k", []byte("v")))
			assert.NoError(t, closeFn())
		})
	}
}
