package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

func TestLoadFixtureEmbedded(t *testing.T) {
	snapshot, err := LoadFixture("")
	require.NoError(t, err)

	assert.Len(t, snapshot.Students, 8)
	assert.Len(t, snapshot.Events, 5)
	assert.Len(t, snapshot.Rewards, 5)
	assert.Len(t, snapshot.Goals, models.SDGMax)
	assert.Len(t, snapshot.Registrations, 16)

	for _, student := range snapshot.Students {
		total := 0
		for _, a := range student.Activities {
			total += a.Points
		}
		assert.Equal(t, student.TotalPoints, total, "student %s", student.ID)
	}
	for _, reg := range snapshot.Registrations {
		assert.NotEmpty(t, reg.StudentID)
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	_, err := LoadFixture("does-not-exist.json")
	require.Error(t, err)
}

func TestMemorySnapshotRepositoryReturnsCopies(t *testing.T) {
	fixture, err := LoadFixture("")
	require.NoError(t, err)
	repo := NewMemorySnapshotRepository(fixture)

	first, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	first.Students[0].Activities[0].SDGs[0] = 99
	first.Rewards[0].Stock = -1

	second, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, 99, second.Students[0].Activities[0].SDGs[0])
	assert.NotEqual(t, -1, second.Rewards[0].Stock)
	assert.False(t, second.TakenAt.IsZero())
}

func TestMemorySnapshotRepositoryDecrementStock(t *testing.T) {
	repo := NewMemorySnapshotRepository(&models.Snapshot{Rewards: []models.Reward{
		{ID: "rwd-1", InitialStock: 2, Stock: 1},
	}})
	ctx := context.Background()

	require.NoError(t, repo.DecrementStock(ctx, "rwd-1"))
	assert.ErrorIs(t, repo.DecrementStock(ctx, "rwd-1"), appErrors.ErrOutOfStock)
	assert.ErrorIs(t, repo.DecrementStock(ctx, "missing"), appErrors.ErrNotFound)

	snapshot, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.Rewards[0].Stock)
}

func TestMemorySnapshotRepositoryIncrementStockCapsAtInitial(t *testing.T) {
	repo := NewMemorySnapshotRepository(&models.Snapshot{Rewards: []models.Reward{
		{ID: "rwd-1", InitialStock: 2, Stock: 1},
	}})
	ctx := context.Background()

	require.NoError(t, repo.IncrementStock(ctx, "rwd-1"))
	require.NoError(t, repo.IncrementStock(ctx, "rwd-1"))
	assert.ErrorIs(t, repo.IncrementStock(ctx, "missing"), appErrors.ErrNotFound)

	snapshot, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Rewards[0].Stock)
}
