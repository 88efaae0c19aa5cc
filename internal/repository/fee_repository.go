package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// FeeRepository manages persistence for student fee records.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

const feeColumns = `id, tenant_id, student_id, term_id, total_amount, amount_paid, balance, status, created_at, updated_at`

// LatestByStudent returns the most recently created fee record for the
// student. Older records, when they exist, are invisible to the till.
// sql.ErrNoRows is returned when the student has no fee record.
func (r *FeeRepository) LatestByStudent(ctx context.Context, tenantID, studentID string) (*models.FeeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_fees WHERE tenant_id = $1 AND student_id = $2 ORDER BY created_at DESC LIMIT 1`, feeColumns)
	var record models.FeeRecord
	if err := r.db.GetContext(ctx, &record, query, tenantID, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID fetches a fee record within the tenant.
func (r *FeeRepository) FindByID(ctx context.Context, tenantID, id string) (*models.FeeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_fees WHERE tenant_id = $1 AND id = $2`, feeColumns)
	var record models.FeeRecord
	if err := r.db.GetContext(ctx, &record, query, tenantID, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new fee record.
func (r *FeeRepository) Create(ctx context.Context, record *models.FeeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO student_fees (id, tenant_id, student_id, term_id, total_amount, amount_paid, balance, status, created_at, updated_at)
        VALUES (:id, :tenant_id, :student_id, :term_id, :total_amount, :amount_paid, :balance, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create fee record: %w", err)
	}
	return nil
}
