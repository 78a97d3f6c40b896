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

var reportJobRowColumns = []string{"id", "type", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}

func newReportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestReportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WithArgs(sqlmock.AnyArg(), "sdg", sqlmock.AnyArg(), "QUEUED", 0, nil, "analyst", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{
		Type:      models.ReportTypeSDG,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		CreatedBy: "analyst",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow(job.ID, "sdg", `{"format":"csv"}`, "QUEUED", 0, nil, "analyst", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, params, status, progress, result_url, created_by, created_at, finished_at, error_message FROM report_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, fetched.ID)
	require.Equal(t, models.ReportFormatCSV, fetched.Params.Format)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	status := models.ReportStatusFinished
	progress := 100
	result := "/api/v1/export/token"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $1, progress = $2, result_url = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, result, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow("job-1", "event", `{"format":"pdf"}`, "QUEUED", 0, nil, "analyst", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, params, status, progress, result_url, created_by, created_at, finished_at, error_message FROM report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListFinishedBefore(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow("job-1", "summary", `{"format":"pdf"}`, "FINISHED", 100, "/api/v1/export/token", "analyst", time.Now().Add(-48*time.Hour), time.Now().Add(-25*time.Hour), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, params, status, progress, result_url, created_by, created_at, finished_at, error_message FROM report_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2")).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(rows)

	jobs, err := repo.ListFinishedBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryReportRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryReportRepository()
	ctx := context.Background()

	older := &models.ReportJob{Type: models.ReportTypeSDG, CreatedAt: time.Now().Add(-time.Minute)}
	newer := &models.ReportJob{Type: models.ReportTypeReward}
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, older))
	assert.Equal(t, models.ReportStatusQueued, older.Status)

	queued, err := repo.ListQueued(ctx, 0)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, older.ID, queued[0].ID)

	finished := models.ReportStatusFinished
	at := time.Now().Add(-2 * time.Hour)
	url := "/api/v1/export/abc"
	require.NoError(t, repo.Update(ctx, older.ID, UpdateReportJobParams{Status: &finished, FinishedAt: &at, ResultURL: &url}))

	job, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, finished, job.Status)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, url, *job.ResultURL)

	stale, err := repo.ListFinishedBefore(ctx, time.Now().Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, "missing", UpdateReportJobParams{}), appErrors.ErrNotFound)
	assert.Error(t, repo.Create(ctx, &models.ReportJob{ID: older.ID}))
}
