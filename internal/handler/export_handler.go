package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	"github.com/noah-isme/sdg-impact-api/internal/service"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
	"github.com/noah-isme/sdg-impact-api/pkg/response"
)

type exporter interface {
	Export(ctx context.Context, req service.ExportRequest, sink service.Sink) (string, error)
}

// ExportHandler streams rendered exports straight into the HTTP response.
type ExportHandler struct {
	exports exporter
	logger  *zap.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exporter, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{exports: exports, logger: logger}
}

// Export godoc
// @Summary Download an aggregate as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param type path string true "sdg | faculty | event | reward | summary"
// @Param format query string false "csv (default) | pdf"
// @Param faculty query string false "Limit to one faculty"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/{type} [get]
func (h *ExportHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", string(models.ReportFormatCSV))))
	req := service.ExportRequest{
		Type:    models.ReportType(strings.ToLower(c.Param("type"))),
		Format:  models.ReportFormat(format),
		Faculty: strings.TrimSpace(c.Query("faculty")),
	}
	sink := service.SinkFunc(func(filename string, data []byte) error {
		response.Attachment(c, filename, req.Format.ContentType())
		c.Status(http.StatusOK)
		_, err := c.Writer.Write(data)
		return err
	})
	if _, err := h.exports.Export(c.Request.Context(), req, sink); err != nil {
		if c.Writer.Written() {
			h.logger.Warn("export response interrupted", zap.String("type", string(req.Type)), zap.Error(err))
			c.Abort()
			return
		}
		response.Error(c, err)
	}
}
