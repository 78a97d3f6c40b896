package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/dto"
	"github.com/noah-isme/sdg-impact-api/internal/models"
	"github.com/noah-isme/sdg-impact-api/internal/repository"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
	"github.com/noah-isme/sdg-impact-api/pkg/jobs"
)

const (
	anonymousRequester = "anonymous"
	recoverBatch       = 50
	cleanupBatch       = 100
	giveUpTimeout      = 5 * time.Second
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportFiles interface {
	ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// jobTransition moves a job to a new status. Terminal statuses stamp FinishedAt.
type jobTransition struct {
	status    models.ReportStatus
	progress  int
	message   *string
	resultURL *string
}

func toProcessing() jobTransition {
	return jobTransition{status: models.ReportStatusProcessing, progress: 10}
}

func toRetry(cause string) jobTransition {
	return jobTransition{status: models.ReportStatusQueued, message: &cause}
}

func toFailed(cause string) jobTransition {
	return jobTransition{status: models.ReportStatusFailed, progress: 100, message: &cause}
}

func toFinished(url string) jobTransition {
	cleared := ""
	return jobTransition{status: models.ReportStatusFinished, progress: 100, resultURL: &url, message: &cleared}
}

func applyTransition(ctx context.Context, repo reportJobStore, id string, t jobTransition) error {
	params := repository.UpdateReportJobParams{
		Status:       &t.status,
		Progress:     &t.progress,
		ErrorMessage: t.message,
		ResultURL:    t.resultURL,
	}
	if t.status.Terminal() {
		now := time.Now().UTC()
		params.FinishedAt = &now
	}
	return repo.Update(ctx, id, params)
}

// ReportService accepts report requests, tracks their jobs and serves the
// signed downloads they produce.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	files     exportFiles
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

type ReportServiceConfig struct {
	// ResultTTL is how long finished exports stay downloadable.
	ResultTTL time.Duration
	// CleanupInterval of zero disables the sweeper.
	CleanupInterval time.Duration
}

// ReportDownload is an opened export ready to stream. The caller closes File.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

func NewReportService(repo reportJobStore, queue jobDispatcher, files exportFiles, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		files:     files,
		validator: validate,
		logger:    logger.With(zap.String("component", "reports")),
		cfg:       cfg,
	}
}

// CreateJob stores a QUEUED job and hands it to the worker queue. A job the
// queue refuses is failed immediately so it is never replayed.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be sdg, faculty, event, reward or summary and format csv or pdf")
	}
	if err := ValidateRequest(ExportRequest{Type: req.Type, Format: req.Format}); err != nil {
		return nil, err
	}
	requester := strings.TrimSpace(req.RequestedBy)
	if requester == "" {
		requester = anonymousRequester
	}
	job := &models.ReportJob{
		Type:      req.Type,
		Params:    models.ReportJobParams{Format: req.Format, Faculty: req.Faculty},
		Status:    models.ReportStatusQueued,
		CreatedBy: requester,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	log := s.logger.With(zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("format", string(req.Format)))
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		if uerr := applyTransition(ctx, s.repo, job.ID, toFailed("queue rejected job")); uerr != nil {
			log.Warn("could not fail rejected job", zap.Error(uerr))
		}
		log.Warn("report queue rejected job", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "report queue is not accepting jobs")
	}
	log.Info("report job queued", zap.String("requested_by", requester))
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

func (s *ReportService) GetStatus(ctx context.Context, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewReportStatus(job), nil
}

// ResolveDownload checks the token against the job it names and opens the
// export. Tokens of jobs whose result was swept or replaced are refused.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.files.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch {
	case job.Status != models.ReportStatusFinished:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	case job.ResultURL == nil || tokenOf(*job.ResultURL) != token:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not match the current result")
	}

	file, err := s.files.Open(relPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file expired")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{File: file, Filename: path.Base(relPath), Format: job.Params.Format, ExpiresAt: expiresAt}, nil
}

func (s *ReportService) load(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		return job, nil
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, appErrors.ErrNotFound):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
}

// RecoverPendingJobs re-enqueues jobs left QUEUED by a previous process.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, recoverBatch)
	if err != nil {
		s.logger.Warn("listing queued jobs failed", zap.Error(err))
		return
	}
	requeued := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("requeue failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		requeued++
	}
	if requeued > 0 {
		s.logger.Info("recovered queued report jobs", zap.Int("count", requeued))
	}
}

// MarkGivenUp fails a job the queue stopped retrying, unless it already
// reached a terminal state.
func (s *ReportService) MarkGivenUp(job jobs.Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), giveUpTimeout)
	defer cancel()
	if current, err := s.repo.GetByID(ctx, job.ID); err == nil && current.Status.Terminal() {
		return
	}
	if err := applyTransition(ctx, s.repo, job.ID, toFailed(cause.Error())); err != nil {
		s.logger.Warn("could not fail abandoned job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// StartCleanup sweeps expired exports every CleanupInterval until ctx ends.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

// cleanupExpired deletes the files of jobs finished more than ResultTTL ago,
// clears their result URL, then sweeps orphaned files from storage.
func (s *ReportService) cleanupExpired(ctx context.Context) {
	stale, err := s.repo.ListFinishedBefore(ctx, time.Now().Add(-s.cfg.ResultTTL), cleanupBatch)
	if err != nil {
		s.logger.Warn("listing expired jobs failed", zap.Error(err))
		return
	}
	cleared := ""
	for _, job := range stale {
		if job.ResultURL == nil || *job.ResultURL == "" {
			continue
		}
		_, relPath, _, err := s.files.ParseToken(tokenOf(*job.ResultURL), true)
		if err != nil {
			continue
		}
		log := s.logger.With(zap.String("job_id", job.ID))
		if err := s.files.Delete(relPath); err != nil {
			log.Warn("deleting expired export failed", zap.Error(err))
			continue
		}
		if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{ResultURL: &cleared}); err != nil {
			log.Warn("clearing result url failed", zap.Error(err))
		}
	}
	removed, err := s.files.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("storage sweep failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("files", len(removed)))
	}
}

// tokenOf returns the last path segment of a signed download URL.
func tokenOf(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}
