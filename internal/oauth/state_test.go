package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateStore(t *testing.T) (*RedisStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStateStore(client), mr
}

func TestStateIssueAndConsumeOnce(t *testing.T) {
	store, _ := newTestStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	ok, err := store.Consume(ctx, state)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, state)
	require.NoError(t, err)
	assert.False(t, ok, "a state is single-use")
}

func TestStateConsumeUnknown(t *testing.T) {
	store, _ := newTestStateStore(t)
	ctx := context.Background()

	ok, err := store.Consume(ctx, "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Consume(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateExpires(t *testing.T) {
	store, mr := newTestStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx)
	require.NoError(t, err)

	mr.FastForward(stateTTL + time.Second)

	ok, err := store.Consume(ctx, state)
	require.NoError(t, err)
	assert.False(t, ok, "an expired state is no longer consumable")
}

func TestStatesAreUnique(t *testing.T) {
	store, _ := newTestStateStore(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		state, err := store.Issue(ctx)
		require.NoError(t, err)
		assert.False(t, seen[state])
		seen[state] = true
	}
}
