package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

func newSnapshotRepoMock(t *testing.T) (*SnapshotRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewSnapshotRepository(sqlx.NewDb(db, "postgres"))
	return repo, mock, func() { db.Close() }
}

func TestSnapshotRepositorySnapshot(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectQuery(regexp.QuoteMeta(selectStudents)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "faculty", "total_points", "weekly_points", "monthly_points"}).
			AddRow("stu-1", "Aisha", "Engineering", 300, 0, 300).
			AddRow("stu-2", "Ben", "Business", 200, 0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectActivities)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "student_id", "title", "category", "sdgs", "points", "occurred_at"}).
			AddRow("act-1", "stu-1", "Cleanup", "event", "13,14", 300, now).
			AddRow("act-2", "stu-2", "Audit", "coursework", "13", 200, now).
			AddRow("act-x", "stu-missing", "Orphan", "society", "1", 10, now))
	mock.ExpectQuery(regexp.QuoteMeta(selectBadges)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "student_id", "name", "earned_at"}).
			AddRow("bdg-1", "stu-1", "Ocean Guardian", now))
	mock.ExpectQuery(regexp.QuoteMeta(selectEvents)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "title", "sdgs", "points", "starts_at", "location", "capacity"}).
			AddRow("evt-1", "Cleanup", "14, 13", 150, now, "Beach", 40))
	mock.ExpectQuery(regexp.QuoteMeta(selectRegistrations)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "student_id", "event_id", "status", "registered_at", "rating_overall", "rating_content", "rating_organization", "rating_venue", "rating_relevance", "highlights", "improvements", "would_recommend"}).
			AddRow("reg-1", "stu-1", "evt-1", "attended", now, 5, 4, 4, 5, 5, "Great", nil, true).
			AddRow("reg-2", "stu-2", "evt-1", "registered", now, nil, nil, nil, nil, nil, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta(selectRewards)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "category", "point_cost", "initial_stock", "stock"}).
			AddRow("rwd-1", "Tumbler", "merchandise", 300, 50, 40))

	snapshot, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, snapshot.Students, 2)
	assert.Equal(t, []int{13, 14}, snapshot.Students[0].Activities[0].SDGs)
	assert.Len(t, snapshot.Students[0].Badges, 1)
	assert.Len(t, snapshot.Students[0].Registrations, 1)
	assert.Equal(t, []int{14, 13}, snapshot.Events[0].SDGs)
	require.Len(t, snapshot.Registrations, 2)
	require.NotNil(t, snapshot.Registrations[0].Feedback)
	assert.Equal(t, 4, snapshot.Registrations[0].Feedback.Content)
	assert.Nil(t, snapshot.Registrations[1].Feedback)
	assert.Equal(t, models.EventStatusRegistered, snapshot.Registrations[1].Status)
	assert.Len(t, snapshot.Goals, models.SDGMax)
	assert.Equal(t, now, snapshot.TakenAt)
}

func TestSnapshotRepositoryRejectsMalformedSDGList(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(selectStudents)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "faculty", "total_points", "weekly_points", "monthly_points"}).
			AddRow("stu-1", "Aisha", "Engineering", 10, 0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectActivities)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "student_id", "title", "category", "sdgs", "points", "occurred_at"}).
			AddRow("act-1", "stu-1", "Cleanup", "event", "13,abc", 10, now))

	_, err := repo.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "act-1")
}

func TestSnapshotRepositoryDecrementStock(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()
	ctx := context.Background()

	update := regexp.QuoteMeta(`UPDATE rewards SET stock = stock - 1 WHERE id = $1 AND stock > 0`)
	lookup := regexp.QuoteMeta(`SELECT stock FROM rewards WHERE id = $1`)

	mock.ExpectExec(update).WithArgs("rwd-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DecrementStock(ctx, "rwd-1"))

	mock.ExpectExec(update).WithArgs("rwd-2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lookup).WithArgs("rwd-2").WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(0))
	assert.ErrorIs(t, repo.DecrementStock(ctx, "rwd-2"), appErrors.ErrOutOfStock)

	mock.ExpectExec(update).WithArgs("rwd-3").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lookup).WithArgs("rwd-3").WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	assert.ErrorIs(t, repo.DecrementStock(ctx, "rwd-3"), appErrors.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryIncrementStock(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE rewards SET stock = stock + 1 WHERE id = $1 AND stock < initial_stock`)).
		WithArgs("rwd-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.IncrementStock(context.Background(), "rwd-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositorySeed(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snapshot := &models.Snapshot{
		Students: []models.Student{{
			ID: "stu-1", Name: "Aisha", Faculty: "Engineering", TotalPoints: 100,
			Activities: []models.ActivityRecord{{ID: "act-1", Title: "Cleanup", Category: models.ActivityEvent, SDGs: []int{13, 14}, Points: 100, OccurredAt: at}},
		}},
		Rewards: []models.Reward{{ID: "rwd-1", Name: "Tumbler", Category: "merchandise", PointCost: 300, InitialStock: 5, Stock: 5}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WithArgs("stu-1", "Aisha", "Engineering", 100, 0, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activities")).
		WithArgs("act-1", "stu-1", "Cleanup", "event", "13,14", 100, at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rewards")).
		WithArgs("rwd-1", "Tumbler", "merchandise", 300, 5, 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Seed(context.Background(), snapshot))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseSDGList(t *testing.T) {
	goals, err := ParseSDGList(" 3, 7 ,,12")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7, 12}, goals)

	goals, err = ParseSDGList("")
	require.NoError(t, err)
	assert.Empty(t, goals)

	_, err = ParseSDGList("3,x")
	require.Error(t, err)

	assert.Equal(t, "3,7,12", FormatSDGList([]int{3, 7, 12}))
}
