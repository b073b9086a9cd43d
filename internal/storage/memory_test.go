// internal/storage/memory_test.go
package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHashOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	h := m.Lobbies("asteroids")

	_, ok, err := h.Get(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.Set(ctx, "l1", `{"id":"l1"}`))
	require.NoError(t, h.Set(ctx, "l2", `{"id":"l2"}`))

	value, ok, err := h.Get(ctx, "l1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":"l1"}`, value)

	n, err := h.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	keys, err := h.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"l1", "l2"}, keys)

	entries, err := h.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, `{"id":"l2"}`, entries["l2"])

	require.NoError(t, h.Delete(ctx, "l1"))
	_, ok, err = h.Get(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.Clear(ctx))
	n, err = h.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryNamespacing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Lobbies("asteroids").Set(ctx, "l1", "a"))
	require.NoError(t, m.Lobbies("chess").Set(ctx, "l1", "b"))
	require.NoError(t, m.Participants("l1").Set(ctx, "p1", "c"))
	require.NoError(t, m.ParticipantMeta("l1", "p1").Set(ctx, "displayName", "d"))

	value, ok, err := m.Lobbies("asteroids").Get(ctx, "l1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", value)

	value, _, _ = m.Lobbies("chess").Get(ctx, "l1")
	assert.Equal(t, "b", value)

	// Clearing one namespace leaves the rest untouched.
	require.NoError(t, m.Lobbies("asteroids").Clear(ctx))
	_, ok, _ = m.Lobbies("chess").Get(ctx, "l1")
	assert.True(t, ok)
	_, ok, _ = m.Participants("l1").Get(ctx, "p1")
	assert.True(t, ok)
}

func TestMemoryValueOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v := m.Latency("p1")

	_, ok, err := v.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, v.Set(ctx, "42"))
	value, ok, err := v.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", value)

	// Distinct participants get distinct slots.
	_, ok, _ = m.Latency("p2").Get(ctx)
	assert.False(t, ok)

	require.NoError(t, v.Delete(ctx))
	_, ok, _ = v.Get(ctx)
	assert.False(t, ok)
}
