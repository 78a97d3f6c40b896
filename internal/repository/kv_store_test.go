package repository

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

func TestMemoryKVStoreValues(t *testing.T) {
	store := NewMemoryKVStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "consent:stu-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, store.Set(ctx, "consent:stu-1", "true"))
	value, err := store.Get(ctx, "consent:stu-1")
	require.NoError(t, err)
	assert.Equal(t, "true", value)

	require.NoError(t, store.Delete(ctx, "consent:stu-1"))
	_, err = store.Get(ctx, "consent:stu-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMemoryKVStoreSets(t *testing.T) {
	store := NewMemoryKVStore()
	ctx := context.Background()

	require.NoError(t, store.AddToSet(ctx, "favorites", "b", "a", "a"))
	members, err := store.SetMembers(ctx, "favorites")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)

	size, err := store.SetSize(ctx, "favorites")
	require.NoError(t, err)
	assert.EqualValues(t, 2, size)

	require.NoError(t, store.RemoveFromSet(ctx, "favorites", "a", "missing"))
	size, err = store.SetSize(ctx, "favorites")
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)

	size, err = store.SetSize(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestMemoryKVStoreIncr(t *testing.T) {
	store := NewMemoryKVStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := store.Incr(ctx, "redemptions:reward:rwd-1")
		require.NoError(t, err)
		assert.EqualValues(t, i, n)
	}
	value, err := store.Get(ctx, "redemptions:reward:rwd-1")
	require.NoError(t, err)
	assert.Equal(t, "3", value)
}

func TestRedisKVStorePrefixesKeys(t *testing.T) {
	store := NewRedisKVStore(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "sdg")
	assert.Equal(t, "sdg:favorites:event:evt-1", store.key("favorites:event:evt-1"))

	bare := NewRedisKVStore(nil, "")
	assert.Equal(t, "favorites", bare.key("favorites"))
}

func TestMemoryKVStoreIncrAfterSet(t *testing.T) {
	store := NewMemoryKVStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "redemptions:reward:rwd-1", "12"))
	n, err := store.Incr(ctx, "redemptions:reward:rwd-1")
	require.NoError(t, err)
	assert.EqualValues(t, 13, n)

	require.NoError(t, store.Set(ctx, "name", "tumbler"))
	_, err = store.Incr(ctx, "name")
	assert.Error(t, err)
}
