package dto

import (
	"time"

	"github.com/noah-isme/sdg-impact-api/internal/models"
)

// ReportRequest is the body of POST /reports. Faculty narrows faculty and
// summary reports to a single faculty.
type ReportRequest struct {
	Type        models.ReportType   `json:"type" validate:"required,oneof=sdg faculty event reward summary"`
	Format      models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Faculty     string              `json:"faculty,omitempty" validate:"omitempty,max=128"`
	RequestedBy string              `json:"requested_by,omitempty" validate:"omitempty,max=64"`
}

// ReportJobResponse acknowledges an accepted job.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse describes a job as seen by the requester. ResultURL is
// set once the job finished and Error once it failed for good.
type ReportStatusResponse struct {
	ReportJobResponse
	Type       models.ReportType   `json:"type"`
	Format     models.ReportFormat `json:"format"`
	Faculty    string              `json:"faculty,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	ResultURL  *string             `json:"result_url,omitempty"`
	Error      *string             `json:"error,omitempty"`
}

// NewReportStatus projects a stored job onto the public status shape.
func NewReportStatus(job *models.ReportJob) *ReportStatusResponse {
	resp := &ReportStatusResponse{
		ReportJobResponse: ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress},
		Type:              job.Type,
		Format:            job.Params.Format,
		Faculty:           job.Params.Faculty,
		CreatedAt:         job.CreatedAt,
		FinishedAt:        job.FinishedAt,
	}
	if job.ResultURL != nil && *job.ResultURL != "" {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}
