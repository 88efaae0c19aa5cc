package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// PaymentRepository persists fee payments. Payment rows are append-only; the
// only permitted mutation is flipping status to void.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, tenant_id, student_fee_id, student_id, amount, payment_method, reference_number, receipt_number, status, received_by, payment_date`

// Record inserts the payment and applies the updated amounts to the fee
// record inside one transaction. Either both writes land or neither does.
func (r *PaymentRepository) Record(ctx context.Context, payment *models.Payment, fee *models.FeeRecord) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC()
	}
	fee.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertQuery = `INSERT INTO fee_payments (id, tenant_id, student_fee_id, student_id, amount, payment_method, reference_number, receipt_number, status, received_by, payment_date)
        VALUES (:id, :tenant_id, :student_fee_id, :student_id, :amount, :payment_method, :reference_number, :receipt_number, :status, :received_by, :payment_date)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	const updateQuery = `UPDATE student_fees SET amount_paid = :amount_paid, balance = :balance, status = :status, updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := tx.NamedExecContext(ctx, updateQuery, fee); err != nil {
		return fmt.Errorf("update fee record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payment tx: %w", err)
	}
	return nil
}

// Void marks the payment void and restores the reversed amounts on the fee
// record, again within one transaction.
func (r *PaymentRepository) Void(ctx context.Context, payment *models.Payment, fee *models.FeeRecord) error {
	fee.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin void tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const voidQuery = `UPDATE fee_payments SET status = $3 WHERE tenant_id = $1 AND id = $2 AND status = $4`
	res, err := tx.ExecContext(ctx, voidQuery, payment.TenantID, payment.ID, models.PaymentStatusVoid, models.PaymentStatusPosted)
	if err != nil {
		return fmt.Errorf("void payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("void payment result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("payment %s already void", payment.ID)
	}

	const updateQuery = `UPDATE student_fees SET amount_paid = :amount_paid, balance = :balance, status = :status, updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := tx.NamedExecContext(ctx, updateQuery, fee); err != nil {
		return fmt.Errorf("update fee record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit void tx: %w", err)
	}
	return nil
}

// FindByID fetches a payment within the tenant.
func (r *PaymentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_payments WHERE tenant_id = $1 AND id = $2`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, tenantID, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// List returns payments matching the filter plus a total count.
func (r *PaymentRepository) List(ctx context.Context, tenantID string, filter models.PaymentFilter) ([]models.Payment, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("payment_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("payment_date < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM fee_payments WHERE %s ORDER BY payment_date DESC LIMIT %d OFFSET %d`, paymentColumns, where, size, offset)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM fee_payments WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}
