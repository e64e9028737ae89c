package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHashOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	got, err := m.HGetAll(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got, "missing hash must read as empty")

	added, err := m.HSet(ctx, "h", map[string]string{"a": "1", "b": "2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	added, err = m.HSet(ctx, "h", map[string]string{"b": "3", "c": "4"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), added, "only new fields count")

	got, err = m.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, got)

	set, err := m.HSetNX(ctx, "h", "a", "9")
	require.NoError(t, err)
	assert.False(t, set, "existing field must not be overwritten")
	set, err = m.HSetNX(ctx, "h", "d", "9")
	require.NoError(t, err)
	assert.True(t, set)

	n, err := m.HIncrBy(ctx, "h", "counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	n, err = m.HIncrBy(ctx, "h", "counter", -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	_, err = m.HIncrBy(ctx, "h", "a", 1)
	assert.Error(t, err, "incr on non-integer field must fail")

	removed, err := m.HDel(ctx, "h", "a", "nope")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestMemorySetOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	added, err := m.SAdd(ctx, "s", "b", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	members, err := m.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members, "members come back sorted")

	removed, err := m.SRem(ctx, "s", "a", "zz")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	members, err = m.SMembers(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMemorySScanPaging(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	want := []string{"m00", "m01", "m02", "m03", "m04", "m05", "m06"}
	for _, member := range want {
		_, err := m.SAdd(ctx, "s", member)
		require.NoError(t, err)
	}

	var got []string
	var cursor uint64
	pages := 0
	for {
		batch, next, err := m.SScan(ctx, "s", cursor, 3)
		require.NoError(t, err)
		got = append(got, batch...)
		pages++
		if next == 0 {
			break
		}
		cursor = next
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 3, pages)

	// Empty set: first call terminates immediately.
	batch, next, err := m.SScan(ctx, "empty", 0, 3)
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.Zero(t, next)
}

func TestMemoryZSetOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	score, err := m.ZIncrBy(ctx, "lb", 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
	_, err = m.ZIncrBy(ctx, "lb", 2, "bob")
	require.NoError(t, err)
	score, err = m.ZIncrBy(ctx, "lb", -3, "carol")
	require.NoError(t, err)
	assert.Equal(t, -3.0, score)

	top, err := m.ZRangeWithScores(ctx, "lb", 0, 1, true)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, ScoredMember{Member: "bob", Score: 2}, top[0])
	assert.Equal(t, ScoredMember{Member: "alice", Score: 1}, top[1])

	all, err := m.ZRangeWithScores(ctx, "lb", 0, -1, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "carol", all[0].Member)

	none, err := m.ZRangeWithScores(ctx, "lb", 5, 9, false)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()

	_, err := m.HGetAll(ctx, "h")
	assert.ErrorIs(t, err, context.Canceled)
	_, _, err = m.SScan(ctx, "s", 0, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
