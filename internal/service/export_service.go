package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/learnsphere/academy-api/pkg/errors"
	"github.com/learnsphere/academy-api/pkg/export"
	"github.com/learnsphere/academy-api/pkg/storage"

	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/repository"
)

type exportBillingRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.InvoiceDetail, error)
	BillingReport(ctx context.Context) ([]repository.BillingReportRow, error)
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
	RenderInvoice(doc export.InvoiceDocument) ([]byte, error)
	RenderTable(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered output type for report exports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string       `json:"relative_path"`
	Token        string       `json:"token"`
	URL          string       `json:"url"`
	Format       ExportFormat `json:"format"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// ExportService renders invoices and billing reports and persists the files.
type ExportService struct {
	billing exportBillingRepository
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(billing exportBillingRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		billing: billing,
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// GenerateInvoicePDF renders a single invoice document and stores it.
func (s *ExportService) GenerateInvoicePDF(ctx context.Context, invoiceID string) (*ExportResult, error) {
	detail, err := s.billing.FindDetailByID(ctx, invoiceID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	payload, err := s.pdf.RenderInvoice(buildInvoiceDocument(detail))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render invoice document")
	}

	filename := fmt.Sprintf("invoice_%s_%s.pdf", sanitizeFilename(detail.Number), time.Now().UTC().Format("20060102_150405"))
	return s.store(invoiceID, filename, payload, ExportFormatPDF)
}

// GenerateBillingReport renders the full billing report in the requested format.
func (s *ExportService) GenerateBillingReport(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	rows, err := s.billing.BillingReport(ctx)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	dataset := buildBillingDataset(rows)

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.RenderTable(dataset, "Billing Report")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render billing report")
	}

	filename := fmt.Sprintf("billing_report_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	return s.store("billing-report", filename, payload, format)
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (documentID, relPath string, expiresAt time.Time, err error) {
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

func (s *ExportService) store(documentID, filename string, payload []byte, format ExportFormat) (*ExportResult, error) {
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export file")
	}

	token, expiresAt, err := s.signer.Generate(documentID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated",
		zap.String("document_id", documentID),
		zap.String("path", relPath),
		zap.String("format", string(format)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

func buildInvoiceDocument(detail *models.InvoiceDetail) export.InvoiceDocument {
	doc := export.InvoiceDocument{
		Number:      detail.Number,
		IssuedAt:    detail.CreatedAt.Format("02 Jan 2006"),
		DueAt:       detail.DueDate.Format("02 Jan 2006"),
		StudentName: detail.StudentName,
		CourseTitle: detail.CourseTitle,
		BatchName:   detail.BatchName,
		Status:      string(detail.Status),
		Total:       formatAmount(detail.FinalAmount),
		Paid:        formatAmount(detail.PaidAmount),
		Remaining:   formatAmount(detail.RemainingAmount),
	}
	doc.Lines = append(doc.Lines, export.InvoiceLine{Label: "Course fee", Amount: formatAmount(detail.Amount)})
	if detail.DiscountAmount > 0 {
		doc.Lines = append(doc.Lines, export.InvoiceLine{Label: "Discount", Amount: "-" + formatAmount(detail.DiscountAmount)})
	}
	for _, payment := range detail.Payments {
		if !payment.Status.CountsTowardBalance() {
			continue
		}
		label := fmt.Sprintf("%s (%s)", payment.Method, payment.CreatedAt.Format("02 Jan 2006"))
		doc.Payments = append(doc.Payments, export.InvoiceLine{Label: label, Amount: formatAmount(payment.Amount)})
	}
	return doc
}

func buildBillingDataset(rows []repository.BillingReportRow) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Invoice", "Student", "Course", "Batch", "Total", "Paid", "Remaining", "Status", "Due Date"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Invoice":   row.Number,
			"Student":   row.StudentName,
			"Course":    row.CourseTitle,
			"Batch":     row.BatchName,
			"Total":     formatAmount(row.FinalAmount),
			"Paid":      formatAmount(row.PaidAmount),
			"Remaining": formatAmount(row.Remaining),
			"Status":    string(row.Status),
			"Due Date":  row.DueDate.Format("2006-01-02"),
		})
	}
	return dataset
}

// formatAmount renders minor units as a decimal string.
func formatAmount(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
