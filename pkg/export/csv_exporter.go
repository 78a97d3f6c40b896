package export

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoColumns is returned when a dataset has no headers to render.
var ErrNoColumns = errors.New("export: dataset has no columns")

// Dataset is a header-ordered table. Rows are keyed by header; a missing key
// renders as an empty cell.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Record returns row i projected onto the header order.
func (d Dataset) Record(i int) []string {
	out := make([]string, len(d.Headers))
	for col, h := range d.Headers {
		out[col] = d.Rows[i][h]
	}
	return out
}

// CSVExporter writes datasets as LF-terminated CSV. Fields are quoted only
// when they contain the delimiter, a quote or a line break.
type CSVExporter struct {
	comma rune
}

func NewCSVExporter() *CSVExporter {
	return NewCSVExporterWithDelimiter(',')
}

// NewCSVExporterWithDelimiter uses delimiter instead of a comma. Zero means comma.
func NewCSVExporterWithDelimiter(delimiter rune) *CSVExporter {
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSVExporter{comma: delimiter}
}

// Render returns the dataset as CSV bytes.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the header line followed by one line per row to w.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return ErrNoColumns
	}
	bw := bufio.NewWriter(w)
	if err := e.writeRecord(bw, data.Headers); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for i := range data.Rows {
		if err := e.writeRecord(bw, data.Record(i)); err != nil {
			return fmt.Errorf("csv row %d: %w", i+1, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return nil
}

func (e *CSVExporter) writeRecord(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if _, err := w.WriteRune(e.comma); err != nil {
				return err
			}
		}
		if !e.needsQuotes(field) {
			if _, err := w.WriteString(field); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := w.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// needsQuotes reports whether field carries the delimiter, a quote or a line break.
func (e *CSVExporter) needsQuotes(field string) bool {
	return strings.ContainsRune(field, e.comma) || strings.ContainsAny(field, "\"\r\n")
}
