package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

const reportJobColumns = `id, type, params, status, progress, result_url, created_by, created_at, finished_at, error_message`

// ReportRepository persists report job metadata.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report job row with generated defaults.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	prepareReportJob(job)
	const query = `INSERT INTO report_jobs (id, type, params, status, progress, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :type, :params, :status, :progress, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query := r.db.Rebind(`SELECT ` + reportJobColumns + ` FROM report_jobs WHERE id = ?`)
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return &job, nil
}

// UpdateReportJobParams defines the mutable fields.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	if params.Status != nil {
		set = append(set, "status = ?")
		args = append(args, *params.Status)
	}
	if params.Progress != nil {
		set = append(set, "progress = ?")
		args = append(args, *params.Progress)
	}
	if params.ResultURL != nil {
		set = append(set, "result_url = ?")
		args = append(args, *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		set = append(set, "error_message = ?")
		args = append(args, *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		set = append(set, "finished_at = ?")
		args = append(args, *params.FinishedAt)
	}

	if len(set) == 0 {
		return nil
	}

	query := r.db.Rebind(fmt.Sprintf("UPDATE report_jobs SET %s WHERE id = ?", strings.Join(set, ", ")))
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs (used for cold start recovery).
func (r *ReportRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := r.db.Rebind(`SELECT ` + reportJobColumns + ` FROM report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT ?`)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued report jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.Rebind(`SELECT ` + reportJobColumns + ` FROM report_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < ? ORDER BY finished_at ASC LIMIT ?`)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	return jobs, nil
}

func prepareReportJob(job *models.ReportJob) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
}

// MemoryReportRepository keeps report jobs in process memory for the fixture data source.
type MemoryReportRepository struct {
	mu   sync.RWMutex
	jobs map[string]models.ReportJob
}

// NewMemoryReportRepository constructs an empty job store.
func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{jobs: make(map[string]models.ReportJob)}
}

// Create stores a new job.
func (r *MemoryReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	prepareReportJob(job)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return appErrors.Clone(appErrors.ErrConflict, "report job already exists")
	}
	r.jobs[job.ID] = *job
	return nil
}

// GetByID returns a copy of the stored job.
func (r *MemoryReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &job, nil
}

// Update applies the provided changes.
func (r *MemoryReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		url := *params.ResultURL
		job.ResultURL = &url
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		at := *params.FinishedAt
		job.FinishedAt = &at
	}
	r.jobs[id] = job
	return nil
}

// ListQueued returns queued jobs oldest first.
func (r *MemoryReportRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.filter(limit, func(job models.ReportJob) bool {
		return job.Status == models.ReportStatusQueued
	}, func(job models.ReportJob) time.Time { return job.CreatedAt }), nil
}

// ListFinishedBefore returns finished jobs older than cutoff.
func (r *MemoryReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.filter(limit, func(job models.ReportJob) bool {
		return job.Status == models.ReportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff)
	}, func(job models.ReportJob) time.Time { return *job.FinishedAt }), nil
}

func (r *MemoryReportRepository) filter(limit int, keep func(models.ReportJob) bool, orderBy func(models.ReportJob) time.Time) []models.ReportJob {
	r.mu.RLock()
	out := make([]models.ReportJob, 0)
	for _, job := range r.jobs {
		if keep(job) {
			out = append(out, job)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		ti, tj := orderBy(out[i]), orderBy(out[j])
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.Before(tj)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
