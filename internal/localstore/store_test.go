package localstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/models"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	s := miniredis.RunT(t)
	r, err := NewRedis("redis://"+s.Addr(), "u1")
	require.NoError(t, err)

	p, err := NewPebble("local", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)

	return map[string]Backend{
		"memory": NewMemory(),
		"redis":  r,
		"pebble": p,
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer b.Close()

			_, ok, err := b.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set(ctx, "k", "v1"))
			v, ok, err := b.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v1", v)

			require.NoError(t, b.Delete(ctx, "k"))
			_, ok, err = b.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPinOverride(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())

	_, ok, err := s.PinOverride(ctx, "favorites_u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetPinOverride(ctx, "favorites_u1", false))
	pinned, ok, err := s.PinOverride(ctx, "favorites_u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, pinned)
}

func TestDraftClearsOnEmpty(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := New(mem)

	require.NoError(t, s.SetDraft(ctx, "c1", "half a thought"))
	d, err := s.Draft(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "half a thought", d)

	require.NoError(t, s.SetDraft(ctx, "c1", ""))
	_, ok, _ := mem.Get(ctx, "draft_c1")
	assert.False(t, ok)
}

func TestAccount(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())

	_, err := s.Account(ctx)
	require.ErrorIs(t, err, ErrNoAccount)

	require.NoError(t, s.SetAccount(ctx, models.User{ID: "u1", Name: "Alice", Username: "alice", Role: models.RoleUser}))
	u, err := s.Account(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	name, err := s.Username(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
}

func TestLastSelectedChat(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())

	require.NoError(t, s.SetLastSelectedChat(ctx, "c9"))
	id, err := s.LastSelectedChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c9", id)
}
