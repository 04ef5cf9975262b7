package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	// open must return a store backed by the same location on every call.
	open func(t *testing.T) Store
}

func backends(t *testing.T) []backend {
	dir := t.TempDir()
	mem := NewMemory()
	return []backend{
		{"memory", func(t *testing.T) Store { return memoryView{mem} }},
		{"file", func(t *testing.T) Store {
			s, err := OpenFile(filepath.Join(dir, "files"))
			require.NoError(t, err)
			return s
		}},
		{"bolt", func(t *testing.T) Store {
			s, err := OpenBolt(filepath.Join(dir, "history.bolt"))
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(dir, "history.db"))
			require.NoError(t, err)
			return s
		}},
	}
}

// memoryView lets the shared Memory survive the Close calls of the reopen step.
type memoryView struct{ *Memory }

func (memoryView) Close() error { return nil }

func TestBackendConformance(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)

			_, ok, err := s.Get(ctx, "chat-history-1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "chat-history-1", `[{"id":"a"}]`))
			require.NoError(t, s.Set(ctx, "chat-history-12", `[]`))
			require.NoError(t, s.Set(ctx, "settings", `{}`))
			require.NoError(t, s.Set(ctx, "chat-history-1", `[{"id":"b"}]`))

			val, ok, err := s.Get(ctx, "chat-history-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"b"}]`, val)

			keys, err := s.Keys(ctx, "chat-history-")
			require.NoError(t, err)
			assert.Equal(t, []string{"chat-history-1", "chat-history-12"}, keys)

			require.NoError(t, s.Delete(ctx, "chat-history-12"))
			require.NoError(t, s.Delete(ctx, "chat-history-12"), "delete must be idempotent")
			require.NoError(t, s.Delete(ctx, "never-set"))

			require.NoError(t, s.Close())

			reopened := b.open(t)
			defer reopened.Close()
			val, ok, err = reopened.Get(ctx, "chat-history-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"b"}]`, val)

			_, ok, err = reopened.Get(ctx, "chat-history-12")
			require.NoError(t, err)
			assert.False(t, ok)

			all, err := reopened.Keys(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"chat-history-1", "settings"}, all)
		})
	}
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	_, _, err := m.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Set(context.Background(), "x", "y"), ErrClosed)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{DriverBolt, DriverSQLite, DriverFile, DriverMemory, ""} {
		s, err := Open(Options{Driver: driver, DataDir: dir})
		require.NoError(t, err, driver)
		require.NoError(t, s.Close())
	}

	_, err := Open(Options{Driver: "redis", DataDir: dir})
	assert.Error(t, err)

	_, err = Open(Options{Driver: DriverBolt})
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("d", "history.bolt"), DefaultPath(DriverBolt, "d"))
	assert.Equal(t, filepath.Join("d", "history.db"), DefaultPath(DriverSQLite, "d"))
	assert.Equal(t, filepath.Join("d", "history"), DefaultPath(DriverFile, "d"))
}
