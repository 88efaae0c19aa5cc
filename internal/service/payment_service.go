package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/receipt"
)

type paymentRepository interface {
	Record(ctx context.Context, payment *models.Payment, fee *models.FeeRecord) error
	Void(ctx context.Context, payment *models.Payment, fee *models.FeeRecord) error
	FindByID(ctx context.Context, tenantID, id string) (*models.Payment, error)
	List(ctx context.Context, tenantID string, filter models.PaymentFilter) ([]models.Payment, int, error)
}

type feeRecordRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.FeeRecord, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RecordPaymentRequest holds payload for recording a payment at the till.
type RecordPaymentRequest struct {
	StudentFeeID    string               `json:"student_fee_id" validate:"required"`
	Amount          int64                `json:"amount" validate:"required,gt=0"`
	Method          models.PaymentMethod `json:"payment_method" validate:"required,oneof=cash mobile_money bank card"`
	ReferenceNumber string               `json:"reference_number"`
}

// PaymentService records and voids payments. Each recording writes the
// payment row and the fee record update in one database transaction.
type PaymentService struct {
	payments  paymentRepository
	fees      feeRecordRepository
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService constructs the payment service.
func NewPaymentService(payments paymentRepository, fees feeRecordRepository, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		payments:  payments,
		fees:      fees,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Record posts a payment against a fee record. The amount must be positive;
// overpayment is allowed and leaves the balance negative. The fee record's
// balance always equals total minus the sum of posted amounts, and its status
// follows the balance: paid when it reaches zero or below, partial when
// anything has been paid, pending otherwise.
func (s *PaymentService) Record(ctx context.Context, tenantID, userID string, req RecordPaymentRequest) (*models.PaymentResult, error) {
	// Validation happens before any lookup so a bad amount never touches
	// the database.
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	fee, err := s.fees.FindByID(ctx, tenantID, req.StudentFeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee record")
	}

	previousBalance := fee.Balance
	now := s.now().UTC()

	updated := *fee
	updated.AmountPaid = fee.AmountPaid + req.Amount
	updated.Balance = updated.TotalAmount - updated.AmountPaid
	updated.Status = models.FeeStatusFor(updated.TotalAmount, updated.AmountPaid)
	updated.UpdatedAt = now

	payment := &models.Payment{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		StudentFeeID:    fee.ID,
		StudentID:       fee.StudentID,
		Amount:          req.Amount,
		Method:          req.Method,
		ReferenceNumber: req.ReferenceNumber,
		ReceiptNumber:   receipt.NewNumber(now),
		Status:          models.PaymentStatusPosted,
		ReceivedBy:      userID,
		PaymentDate:     now,
	}

	if err := s.payments.Record(ctx, payment, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if s.metrics != nil {
		s.metrics.RecordPayment(req.Amount)
	}
	s.writeAudit(ctx, tenantID, userID, models.AuditActionPaymentRecord, payment.ID, payment)

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("student_id", payment.StudentID),
		zap.Int64("amount", payment.Amount),
		zap.String("receipt_number", payment.ReceiptNumber),
	)

	return &models.PaymentResult{
		Payment:         *payment,
		ReceiptNumber:   payment.ReceiptNumber,
		PreviousBalance: previousBalance,
		NewBalance:      updated.Balance,
		FeeRecord:       updated,
	}, nil
}

// Void reverses a posted payment. The payment row stays in the ledger marked
// void and the fee record is recomputed without it.
func (s *PaymentService) Void(ctx context.Context, tenantID, userID, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, tenantID, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Status == models.PaymentStatusVoid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is already void")
	}

	fee, err := s.fees.FindByID(ctx, tenantID, payment.StudentFeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee record")
	}

	updated := *fee
	updated.AmountPaid = fee.AmountPaid - payment.Amount
	if updated.AmountPaid < 0 {
		updated.AmountPaid = 0
	}
	updated.Balance = updated.TotalAmount - updated.AmountPaid
	updated.Status = models.FeeStatusFor(updated.TotalAmount, updated.AmountPaid)
	updated.UpdatedAt = s.now().UTC()

	payment.Status = models.PaymentStatusVoid
	if err := s.payments.Void(ctx, payment, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to void payment")
	}

	s.writeAudit(ctx, tenantID, userID, models.AuditActionPaymentVoid, payment.ID, payment)
	s.logger.Info("payment voided", zap.String("payment_id", payment.ID), zap.Int64("amount", payment.Amount))

	return payment, nil
}

// Get returns a single payment.
func (s *PaymentService) Get(ctx context.Context, tenantID, id string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// List returns payments and pagination metadata.
func (s *PaymentService) List(ctx context.Context, tenantID string, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.payments.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return payments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *PaymentService) writeAudit(ctx context.Context, tenantID, userID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, err := json.Marshal(payload)
	if err != nil {
		values = nil
	}
	log := &models.AuditLog{
		TenantID:   tenantID,
		Action:     action,
		Resource:   "payment",
		ResourceID: &resourceID,
		NewValues:  values,
		CreatedAt:  s.now().UTC(),
	}
	if userID != "" {
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}
