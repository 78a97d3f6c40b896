package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
	"github.com/noah-isme/sdg-impact-api/pkg/export"
	"github.com/noah-isme/sdg-impact-api/pkg/storage"
)

// Sink receives rendered export bytes. How they reach the user is up to the sink.
type Sink interface {
	Emit(filename string, data []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(filename string, data []byte) error

// Emit calls f.
func (f SinkFunc) Emit(filename string, data []byte) error { return f(filename, data) }

type reportDataSource interface {
	ReportData(ctx context.Context, faculty string) (ReportData, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderDocument(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Filename     string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportRequest selects what to render.
type ExportRequest struct {
	Type    models.ReportType
	Format  models.ReportFormat
	Faculty string
}

// ExportService renders aggregates into CSV tables and PDF reports and hands them to a sink.
type ExportService struct {
	data    reportDataSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	builder *ReportBuilder
	signer  *storage.SignedURLSigner
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// ExportDeps groups the collaborators of ExportService.
type ExportDeps struct {
	Data    reportDataSource
	Storage fileStorage
	Signer  *storage.SignedURLSigner
	Builder *ReportBuilder
	CSV     csvRenderer
	PDF     pdfRenderer
	Metrics *MetricsService
	Logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(deps ExportDeps, cfg ExportConfig) *ExportService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if deps.CSV == nil {
		deps.CSV = export.NewCSVExporter()
	}
	if deps.PDF == nil {
		deps.PDF = export.NewPDFExporter()
	}
	if deps.Builder == nil {
		deps.Builder = NewReportBuilder(nil)
	}
	return &ExportService{
		data:    deps.Data,
		storage: deps.Storage,
		csv:     deps.CSV,
		pdf:     deps.PDF,
		builder: deps.Builder,
		signer:  deps.Signer,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ValidateRequest checks that the type and format combination can be rendered.
func ValidateRequest(req ExportRequest) error {
	switch req.Format {
	case models.ReportFormatCSV:
		if !req.Type.Tabular() {
			return appErrors.Clone(appErrors.ErrUnsupportedReport, fmt.Sprintf("report type %q has no csv table", req.Type))
		}
	case models.ReportFormatPDF:
		if !req.Type.Tabular() && req.Type != models.ReportTypeSummary {
			return appErrors.Clone(appErrors.ErrUnsupportedReport, fmt.Sprintf("unknown report type %q", req.Type))
		}
	default:
		return appErrors.Clone(appErrors.ErrUnsupportedReport, fmt.Sprintf("unknown format %q", req.Format))
	}
	return nil
}

// Filename returns the download name for a request rendered at the given time.
func Filename(req ExportRequest, at time.Time) string {
	date := at.UTC().Format("2006-01-02")
	if req.Type == models.ReportTypeSummary {
		return fmt.Sprintf("sdg-report-%s.pdf", date)
	}
	return fmt.Sprintf("%s-%s.%s", req.Type, date, req.Format)
}

// Export renders the request and emits it through sink. It returns the emitted filename.
// Sink failures surface as EXPORT_SINK_FAILED and are not retried.
func (s *ExportService) Export(ctx context.Context, req ExportRequest, sink Sink) (string, error) {
	payload, filename, err := s.Render(ctx, req)
	if err != nil {
		return "", err
	}
	if err := sink.Emit(filename, payload); err != nil {
		s.logger.Warn("export sink failed", zap.String("filename", filename), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrExportSink.Code, appErrors.ErrExportSink.Status, appErrors.ErrExportSink.Message)
	}
	return filename, nil
}

// Render builds the bytes and download name for a request without emitting them.
func (s *ExportService) Render(ctx context.Context, req ExportRequest) (payload []byte, filename string, err error) {
	defer func() { s.metrics.RecordExport(req.Type, req.Format, err) }()

	if err = ValidateRequest(req); err != nil {
		return nil, "", err
	}
	data, err := s.data.ReportData(ctx, req.Faculty)
	if err != nil {
		return nil, "", err
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = s.now().UTC()
	}

	switch {
	case req.Type == models.ReportTypeSummary:
		payload, err = s.pdf.RenderDocument(s.builder.Build(data))
	case req.Format == models.ReportFormatCSV:
		payload, err = s.csv.Render(datasetFor(req.Type, data))
	default:
		payload, err = s.pdf.Render(datasetFor(req.Type, data), tableTitle(req))
	}
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return payload, Filename(req, s.now()), nil
}

func datasetFor(t models.ReportType, data ReportData) export.Dataset {
	switch t {
	case models.ReportTypeSDG:
		return SDGDataset(data.SDG)
	case models.ReportTypeFaculty:
		return FacultyDataset(data.Faculties)
	case models.ReportTypeEvent:
		return EventDataset(data.Events)
	default:
		return RewardDataset(data.Rewards)
	}
}

func tableTitle(req ExportRequest) string {
	var title string
	switch req.Type {
	case models.ReportTypeSDG:
		title = SectionSDG
	case models.ReportTypeFaculty:
		title = SectionFaculty
	case models.ReportTypeEvent:
		title = SectionEvents
	default:
		title = SectionRewards
	}
	if req.Faculty != "" {
		title += " - " + req.Faculty
	}
	return title
}

// jobSink stores emitted files under a per-job directory so same-day reports never collide.
type jobSink struct {
	storage fileStorage
	dir     string
	relPath string
}

func (s *jobSink) Emit(filename string, data []byte) error {
	rel, err := s.storage.Save(path.Join(s.dir, filename), data)
	if err != nil {
		return err
	}
	s.relPath = rel
	return nil
}

// Generate renders a queued report job into storage and signs a download link for it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	req := ExportRequest{Type: job.Type, Format: job.Params.Format, Faculty: job.Params.Faculty}
	sink := &jobSink{storage: s.storage, dir: job.ID}
	filename, err := s.Export(ctx, req, sink)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, sink.relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: sink.relPath,
		Filename:     filename,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}
