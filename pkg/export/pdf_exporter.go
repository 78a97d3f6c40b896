package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth    = 190.0
	headerHeight = 8.0
	rowHeight    = 7.0
	lineHeight   = 5.5
)

// PDFExporter renders datasets and documents into A4 PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := newPDF()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}
	writeTable(pdf, tr, data)
	return output(pdf)
}

// RenderDocument lays out a cover page followed by each section in order.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf document requires a title")
	}
	pdf := newPDF()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.Ln(60)
	pdf.SetFont("Arial", "B", 22)
	pdf.MultiCell(0, 10, tr(doc.Title), "", "C", false)
	if doc.Subtitle != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "", 13)
		pdf.MultiCell(0, 7, tr(doc.Subtitle), "", "C", false)
	}
	if !doc.GeneratedAt.IsZero() {
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, "Generated "+doc.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	}

	for i, section := range doc.Sections {
		if i == 0 || section.Table != nil {
			pdf.AddPage()
		} else {
			pdf.Ln(6)
		}
		writeSection(pdf, tr, section)
	}

	return output(pdf)
}

func newPDF() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	return pdf
}

func writeSection(pdf *gofpdf.Fpdf, tr func(string) string, section Section) {
	if section.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.SetFillColor(230, 236, 241)
		pdf.CellFormat(0, 10, tr(section.Title), "", 1, "L", true, 0, "")
		pdf.Ln(3)
	}
	pdf.SetFont("Arial", "", 10)
	for _, p := range section.Paragraphs {
		pdf.MultiCell(0, lineHeight, tr(p), "", "L", false)
		pdf.Ln(2)
	}
	for _, b := range section.Bullets {
		pdf.MultiCell(0, lineHeight, tr("- "+b), "", "L", false)
	}
	if section.Table != nil && len(section.Table.Headers) > 0 {
		pdf.Ln(2)
		writeTable(pdf, tr, *section.Table)
	}
}

func writeTable(pdf *gofpdf.Fpdf, tr func(string) string, data Dataset) {
	colWidth := pageWidth / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 9)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, headerHeight, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, rowHeight, tr(truncate(pdf, row[header], colWidth)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// truncate shortens value so that it fits in a cell of the given width.
func truncate(pdf *gofpdf.Fpdf, value string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(value) <= limit {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
