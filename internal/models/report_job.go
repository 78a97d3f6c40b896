package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType names an exportable aggregate.
type ReportType string

const (
	ReportTypeSDG     ReportType = "sdg"
	ReportTypeFaculty ReportType = "faculty"
	ReportTypeEvent   ReportType = "event"
	ReportTypeReward  ReportType = "reward"
	ReportTypeSummary ReportType = "summary"
)

// Tabular reports whether the type renders as a single table, and so has a CSV form.
// The summary is a narrative document and is PDF only.
func (t ReportType) Tabular() bool {
	switch t {
	case ReportTypeSDG, ReportTypeFaculty, ReportTypeEvent, ReportTypeReward:
		return true
	}
	return false
}

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ContentType is the MIME type served for the format.
func (f ReportFormat) ContentType() string {
	if f == ReportFormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// ReportStatus is the lifecycle state of a background report job:
// QUEUED -> PROCESSING -> FINISHED | FAILED, with PROCESSING -> QUEUED on retry.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Terminal reports whether no further transitions happen from s.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusFinished || s == ReportStatusFailed
}

// ReportJob is one asynchronous export request and its outcome.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ReportJobParams holds the render options of a job, stored as a JSON column.
type ReportJobParams struct {
	Format  ReportFormat `json:"format"`
	Faculty string       `json:"faculty,omitempty"`
}

// Value implements driver.Valuer.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report job params: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner for both TEXT (SQLite) and JSONB (PostgreSQL) columns.
func (p *ReportJobParams) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportJobParams", value)
	}
	*p = ReportJobParams{}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report job params: %w", err)
	}
	return nil
}
