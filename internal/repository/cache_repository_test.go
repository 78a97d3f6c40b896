package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "sdg", nil)
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "analytics:sdg", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "analytics:sdg", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "analytics:*"))
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())
}

func TestCacheRepositoryKeyPrefix(t *testing.T) {
	assert.Equal(t, "sdg:v1:analytics:sdg", NewCacheRepository(nil, "sdg", nil).key("analytics:sdg"))
	assert.Equal(t, "v1:analytics:sdg", NewCacheRepository(nil, "", nil).key("analytics:sdg"))
}
