package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
	"github.com/noah-isme/sdg-impact-api/pkg/jobs"
)

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportWorker is the queue handler that renders report jobs.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	logger     *zap.Logger
	maxRetries int
}

func NewReportWorker(repo reportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		logger:     logger.With(zap.String("component", "report_worker")),
		maxRetries: maxRetries,
	}
}

// Handle renders one job. Client errors fail the job and return nil so the
// queue drops it. Other errors put the job back to QUEUED and are returned for
// retry, until the attempt budget is spent and the job is failed.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	log := w.logger.With(zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))

	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := applyTransition(ctx, w.repo, job.ID, toProcessing()); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err == nil {
		if err := applyTransition(ctx, w.repo, job.ID, toFinished(result.URL)); err != nil {
			log.Warn("recording finished job failed", zap.Error(err))
			return err
		}
		log.Info("report job finished", zap.String("file", result.Filename))
		return nil
	}

	next := toRetry(err.Error())
	permanent := appErrors.IsClientError(err)
	if permanent || job.Attempt >= w.maxRetries {
		next = toFailed(err.Error())
	}
	if uerr := applyTransition(ctx, w.repo, job.ID, next); uerr != nil {
		log.Warn("recording job failure failed", zap.String("status", string(next.status)), zap.Error(uerr))
	}
	if permanent {
		log.Warn("report job rejected", zap.Error(err))
		return nil
	}
	log.Warn("report job attempt failed", zap.Error(err))
	return err
}
