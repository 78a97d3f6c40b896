package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	"github.com/noah-isme/sdg-impact-api/internal/repository"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
	"github.com/noah-isme/sdg-impact-api/pkg/jobs"
)

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(context.Context, *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func queuedJobRepo(t *testing.T) *repository.MemoryReportRepository {
	t.Helper()
	repo := repository.NewMemoryReportRepository()
	require.NoError(t, repo.Create(context.Background(), &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeSDG,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}))
	return repo
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := queuedJobRepo(t)
	worker := NewReportWorker(repo, exportStub{result: &ExportResult{URL: "/api/v1/export/token", Filename: "sdg.csv"}}, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	stored, _ := repo.GetByID(context.Background(), "job-1")
	assert.Equal(t, models.ReportStatusFinished, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.ResultURL)
	assert.Equal(t, "/api/v1/export/token", *stored.ResultURL)
}

func TestReportWorkerHandleRetryThenFail(t *testing.T) {
	repo := queuedJobRepo(t)
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, 2, zap.NewNop())

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0}))
	stored, _ := repo.GetByID(context.Background(), "job-1")
	assert.Equal(t, models.ReportStatusQueued, stored.Status)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2}))
	stored, _ = repo.GetByID(context.Background(), "job-1")
	assert.Equal(t, models.ReportStatusFailed, stored.Status)
}

func TestReportWorkerClientErrorIsTerminal(t *testing.T) {
	repo := queuedJobRepo(t)
	sinkErr := appErrors.Clone(appErrors.ErrUnsupportedReport, "no table")
	worker := NewReportWorker(repo, exportStub{err: sinkErr}, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	stored, _ := repo.GetByID(context.Background(), "job-1")
	assert.Equal(t, models.ReportStatusFailed, stored.Status)
}

func TestReportWorkerFinishedClearsPreviousError(t *testing.T) {
	repo := queuedJobRepo(t)
	failing := NewReportWorker(repo, exportStub{err: errors.New("disk full")}, 3, zap.NewNop())
	require.Error(t, failing.Handle(context.Background(), jobs.Job{ID: "job-1"}))

	worker := NewReportWorker(repo, exportStub{result: &ExportResult{URL: "/api/v1/export/t2", Filename: "sdg.csv"}}, 3, zap.NewNop())
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1}))

	stored, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, stored.Status)
	require.NotNil(t, stored.FinishedAt)
	if stored.ErrorMessage != nil {
		assert.Empty(t, *stored.ErrorMessage)
	}
}
