package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/jobs"
	"github.com/noah-isme/sma-fees-api/pkg/receipt"
	"github.com/noah-isme/sma-fees-api/pkg/storage"
)

type tenantSettingsRepository interface {
	Tenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	ReceiptSettings(ctx context.Context, tenantID string) (*models.ReceiptSettings, error)
}

type termReader interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Term, error)
}

type cashierFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ArchivePayload is the job payload for archiving a rendered receipt.
type ArchivePayload struct {
	TenantID  string
	PaymentID string
}

// ArchiveQueue is the background queue carrying receipt archive jobs.
type ArchiveQueue = jobs.Queue[ArchivePayload]

// ReceiptService renders receipts for the till and archives copies to disk.
type ReceiptService struct {
	payments paymentRepository
	fees     feeRecordRepository
	students studentFinder
	terms    termReader
	settings tenantSettingsRepository
	cashiers cashierFinder

	renderer *receipt.Renderer
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	archive  *ArchiveQueue
	metrics  *MetricsService

	currency string
	logger   *zap.Logger
}

// NewReceiptService constructs the receipt service. The archive queue is
// attached separately because its handler is this service.
func NewReceiptService(payments paymentRepository, fees feeRecordRepository, students studentFinder, terms termReader, settings tenantSettingsRepository, cashiers cashierFinder, renderer *receipt.Renderer, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, currency string, logger *zap.Logger) *ReceiptService {
	if currency == "" {
		currency = "KES"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		payments: payments,
		fees:     fees,
		students: students,
		terms:    terms,
		settings: settings,
		cashiers: cashiers,
		renderer: renderer,
		store:    store,
		signer:   signer,
		metrics:  metrics,
		currency: currency,
		logger:   logger,
	}
}

// AttachArchiveQueue wires the background queue used for archiving. The
// queue's handler is this service, so attachment happens after construction.
func (s *ReceiptService) AttachArchiveQueue(q *ArchiveQueue) {
	s.archive = q
	q.OnDrop(func(job jobs.Job[ArchivePayload], err error) {
		s.metrics.RecordReceiptArchive("dropped")
		s.logger.Error("receipt archive abandoned",
			zap.String("payment_id", job.Payload.PaymentID), zap.Error(err))
	})
}

// RenderPDF renders the thermal-printer PDF for the payment's receipt.
func (s *ReceiptService) RenderPDF(ctx context.Context, tenantID, paymentID string) ([]byte, string, error) {
	data, err := s.compose(ctx, tenantID, paymentID)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.renderer.RenderPDF(*data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return pdf, fmt.Sprintf("%s.pdf", data.ReceiptNumber), nil
}

// RenderHTML renders the self-printing browser view for the payment's receipt.
func (s *ReceiptService) RenderHTML(ctx context.Context, tenantID, paymentID string) ([]byte, error) {
	data, err := s.compose(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	page, err := s.renderer.RenderHTML(*data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return page, nil
}

// EnqueueArchive schedules the receipt PDF to be archived in the background.
// Archiving is best-effort; a full queue never fails the payment flow.
func (s *ReceiptService) EnqueueArchive(tenantID, paymentID string) {
	if s.archive == nil {
		return
	}
	job := jobs.Job[ArchivePayload]{
		ID:      uuid.NewString(),
		Payload: ArchivePayload{TenantID: tenantID, PaymentID: paymentID},
	}
	if err := s.archive.Enqueue(job); err != nil {
		s.logger.Warn("receipt archive enqueue failed", zap.String("payment_id", paymentID), zap.Error(err))
	}
}

// HandleArchiveJob renders and stores the receipt PDF. Used as the archive
// queue's handler.
func (s *ReceiptService) HandleArchiveJob(ctx context.Context, job jobs.Job[ArchivePayload]) error {
	pdf, _, err := s.RenderPDF(ctx, job.Payload.TenantID, job.Payload.PaymentID)
	if err != nil {
		return fmt.Errorf("render archived receipt: %w", err)
	}
	if _, err := s.store.Save(s.archivePath(job.Payload.TenantID, job.Payload.PaymentID), pdf); err != nil {
		return err
	}
	s.metrics.RecordReceiptArchive("archived")
	s.logger.Info("receipt archived", zap.String("payment_id", job.Payload.PaymentID))
	return nil
}

// SignedDownloadURL returns a token granting time-limited access to the
// archived receipt file.
func (s *ReceiptService) SignedDownloadURL(tenantID, paymentID string) (string, time.Time, error) {
	if s.signer == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInternal, "receipt downloads are not configured")
	}
	token, expiresAt, err := s.signer.Generate(paymentID, s.archivePath(tenantID, paymentID))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt url")
	}
	return token, expiresAt, nil
}

// OpenArchived validates the token and opens the archived receipt file.
func (s *ReceiptService) OpenArchived(token string) (*os.File, error) {
	if s.signer == nil || s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "receipt downloads are not configured")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid receipt token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "archived receipt not found")
	}
	return file, nil
}

func (s *ReceiptService) archivePath(tenantID, paymentID string) string {
	return filepath.Join(tenantID, paymentID+".pdf")
}

func (s *ReceiptService) compose(ctx context.Context, tenantID, paymentID string) (*receipt.Data, error) {
	payment, err := s.payments.FindByID(ctx, tenantID, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	fee, err := s.fees.FindByID(ctx, tenantID, payment.StudentFeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee record")
	}

	student, err := s.students.FindByID(ctx, tenantID, payment.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	tenant, err := s.settings.Tenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school details")
	}
	prefs, err := s.settings.ReceiptSettings(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt settings")
	}

	data := &receipt.Data{
		SchoolName: tenant.Name,
		Motto:      tenant.Motto,
		Address:    tenant.Address,
		Phone:      tenant.Phone,
		Email:      tenant.Email,
		HeaderText: prefs.HeaderText,
		FooterText: prefs.FooterText,

		ReceiptNumber: payment.ReceiptNumber,
		PaymentDate:   payment.PaymentDate,

		StudentName:     student.FullName,
		AdmissionNumber: student.AdmissionNo,
		ClassName:       student.ClassName,

		Amount:     payment.Amount,
		NewBalance: fee.Balance,
		Method:     string(payment.Method),
		Reference:  payment.ReferenceNumber,

		Currency:    s.currency,
		ShowBalance: prefs.ShowBalance,
		ShowQR:      prefs.ShowQR,
	}
	if payment.Status == models.PaymentStatusPosted {
		data.PreviousBalance = fee.Balance + payment.Amount
	} else {
		data.PreviousBalance = fee.Balance
	}

	if fee.TermID != nil {
		term, err := s.terms.FindByID(ctx, tenantID, *fee.TermID)
		if err == nil {
			data.TermName = term.Name
			data.AcademicYear = term.AcademicYear
		} else if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("receipt term lookup failed", zap.String("payment_id", paymentID), zap.Error(err))
		}
	}

	if s.cashiers != nil && payment.ReceivedBy != "" {
		if cashier, err := s.cashiers.FindByID(ctx, payment.ReceivedBy); err == nil {
			data.CashierName = cashier.FullName
		}
	}

	return data, nil
}
