package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type feeStructureRepository interface {
	ListActive(ctx context.Context, tenantID string) ([]models.FeeStructureLine, error)
	FindByIDs(ctx context.Context, tenantID string, ids []string) ([]models.FeeStructureLine, error)
}

type feeCreator interface {
	Create(ctx context.Context, fee *models.FeeRecord) error
}

type studentFinder interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Student, error)
}

type termFinder interface {
	Current(ctx context.Context, tenantID string) (*models.Term, error)
}

// AssignFeesRequest holds payload for assigning fees to a student.
type AssignFeesRequest struct {
	StudentID        string   `json:"student_id" validate:"required"`
	StructureLineIDs []string `json:"structure_line_ids" validate:"required,min=1,dive,required"`
}

// AssignmentService creates fee records from the tenant's fee structure.
type AssignmentService struct {
	structures feeStructureRepository
	fees       feeCreator
	students   studentFinder
	terms      termFinder
	audit      auditRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(structures feeStructureRepository, fees feeCreator, students studentFinder, terms termFinder, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		structures: structures,
		fees:       fees,
		students:   students,
		terms:      terms,
		audit:      audit,
		validator:  validate,
		logger:     logger,
	}
}

// ListStructures returns the tenant's active fee structure lines.
func (s *AssignmentService) ListStructures(ctx context.Context, tenantID string) ([]models.FeeStructureLine, error) {
	lines, err := s.structures.ListActive(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee structures")
	}
	return lines, nil
}

// Assign creates a pending fee record for the student. The total is the sum
// of the selected structure lines and the record attaches to the current term,
// or to no term when none is marked current.
func (s *AssignmentService) Assign(ctx context.Context, tenantID, userID string, req AssignFeesRequest) (*models.FeeRecord, error) {
	// At least one line is required; rejected before any lookup.
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee assignment payload")
	}

	student, err := s.students.FindByID(ctx, tenantID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	lines, err := s.structures.FindByIDs(ctx, tenantID, req.StructureLineIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structures")
	}
	if len(lines) != len(req.StructureLineIDs) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "one or more fee structure lines do not exist")
	}

	var total int64
	for _, line := range lines {
		total += line.Amount
	}

	fee := &models.FeeRecord{
		TenantID:    tenantID,
		StudentID:   student.ID,
		TotalAmount: total,
		AmountPaid:  0,
		Balance:     total,
		Status:      models.FeeStatusPending,
	}

	term, err := s.terms.Current(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
		}
	} else {
		id := term.ID
		fee.TermID = &id
	}

	if err := s.fees.Create(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee record")
	}

	if s.audit != nil {
		resourceID := fee.ID
		log := &models.AuditLog{
			TenantID:   tenantID,
			Action:     models.AuditActionFeeAssign,
			Resource:   "student_fee",
			ResourceID: &resourceID,
		}
		if userID != "" {
			log.UserID = &userID
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionFeeAssign), zap.Error(err))
		}
	}

	s.logger.Info("fees assigned",
		zap.String("student_id", student.ID),
		zap.Int64("total_amount", total),
		zap.Int("lines", len(lines)),
	)

	return fee, nil
}
