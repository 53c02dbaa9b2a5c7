package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/service"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
	"github.com/learnsphere/academy-api/pkg/response"
)

// ExportHandler exposes invoice and report export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// InvoicePDF godoc
// @Summary Render an invoice as PDF
// @Description Returns a signed, time-limited download URL
// @Tags Exports
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invoices/{id}/export [post]
func (h *ExportHandler) InvoicePDF(c *gin.Context) {
	result, err := h.exports.GenerateInvoicePDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// BillingReport godoc
// @Summary Generate the billing report
// @Description Renders one row per invoice in CSV or PDF form
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Format (csv or pdf)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/billing [post]
func (h *ExportHandler) BillingReport(c *gin.Context) {
	var payload struct {
		Format string `json:"format"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	format := service.ExportFormat(strings.ToLower(payload.Format))
	if format == "" {
		format = service.ExportFormatCSV
	}

	result, err := h.exports.GenerateBillingReport(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a generated export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.exports.ParseToken(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token"))
		return
	}

	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available"))
		return
	}
	defer file.Close()

	filename := filepath.Base(relPath)
	contentType := "application/octet-stream"
	switch filepath.Ext(filename) {
	case ".pdf":
		contentType = "application/pdf"
	case ".csv":
		contentType = "text/csv"
	}

	modTime := time.Now()
	if info, err := file.Stat(); err == nil {
		modTime = info.ModTime()
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", contentType)
	http.ServeContent(c.Writer, c.Request, filename, modTime, file)
}
