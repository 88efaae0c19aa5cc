package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/export"
	"github.com/noah-isme/sma-fees-api/pkg/receipt"
)

// ExportFormat enumerates supported reconciliation export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered export ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders payment reconciliation exports for the back office.
type ExportService struct {
	payments paymentRepository
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(payments paymentRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{payments: payments, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Payments renders the filtered payment ledger in the requested format.
func (s *ExportService) Payments(ctx context.Context, tenantID string, filter models.PaymentFilter, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	// Export the full filtered range, not one page.
	filter.Page = 1
	filter.PageSize = 200

	dataset := export.Dataset{
		Headers: []string{"Receipt No", "Date", "Student ID", "Amount", "Method", "Reference", "Status", "Received By"},
	}
	for {
		payments, total, err := s.payments.List(ctx, tenantID, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments for export")
		}
		for _, p := range payments {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Receipt No":  p.ReceiptNumber,
				"Date":        p.PaymentDate.Format("2006-01-02 15:04"),
				"Student ID":  p.StudentID,
				"Amount":      receipt.FormatAmount(p.Amount),
				"Method":      string(p.Method),
				"Reference":   p.ReferenceNumber,
				"Status":      string(p.Status),
				"Received By": p.ReceivedBy,
			})
		}
		if len(dataset.Rows) >= total || len(payments) == 0 {
			break
		}
		filter.Page++
	}

	stamp := s.now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("payments-%s.csv", stamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	default:
		payload, err := s.pdf.Render(dataset, "Payment Reconciliation")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("payments-%s.pdf", stamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	}
}
