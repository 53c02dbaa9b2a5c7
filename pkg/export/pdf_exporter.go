package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// InvoiceLine is one row on a rendered invoice document.
type InvoiceLine struct {
	Label  string
	Amount string
}

// InvoiceDocument carries everything needed to render an invoice PDF.
type InvoiceDocument struct {
	Number      string
	IssuedAt    string
	DueAt       string
	StudentName string
	CourseTitle string
	BatchName   string
	Status      string
	Lines       []InvoiceLine
	Payments    []InvoiceLine
	Total       string
	Paid        string
	Remaining   string
}

// PDFExporter renders invoice documents and simple tabular reports.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderInvoice produces the printable invoice document.
func (e *PDFExporter) RenderInvoice(doc InvoiceDocument) ([]byte, error) {
	if doc.Number == "" {
		return nil, fmt.Errorf("invoice number required")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "INVOICE "+doc.Number, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Issued: "+doc.IssuedAt+"    Due: "+doc.DueAt, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Billed to: "+doc.StudentName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, doc.CourseTitle+" / "+doc.BatchName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Status: "+strings.ToUpper(doc.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeRows := func(title string, lines []InvoiceLine) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, line := range lines {
			pdf.CellFormat(130, 7, line.Label, "", 0, "L", false, 0, "")
			pdf.CellFormat(50, 7, line.Amount, "", 1, "R", false, 0, "")
		}
		pdf.Ln(2)
	}

	writeRows("Charges", doc.Lines)
	if len(doc.Payments) > 0 {
		writeRows("Payments", doc.Payments)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(130, 7, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, doc.Total, "T", 1, "R", false, 0, "")
	pdf.CellFormat(130, 7, "Paid", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, doc.Paid, "", 1, "R", false, 0, "")
	pdf.CellFormat(130, 7, "Remaining", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, doc.Remaining, "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTable creates a PDF document with an optional title and table body.
func (e *PDFExporter) RenderTable(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
