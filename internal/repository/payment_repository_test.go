package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPaymentRepositoryRecordIsTransactional(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fee_payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE student_fees SET amount_paid").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payment := &models.Payment{
		TenantID:      "t1",
		StudentFeeID:  "fee-1",
		StudentID:     "s1",
		Amount:        20000,
		Method:        models.PaymentMethodCash,
		ReceiptNumber: "RCT-20260314092653-1A2B3C",
		Status:        models.PaymentStatusPosted,
		ReceivedBy:    "u1",
	}
	fee := &models.FeeRecord{
		ID:          "fee-1",
		TenantID:    "t1",
		StudentID:   "s1",
		TotalAmount: 70000,
		AmountPaid:  20000,
		Balance:     50000,
		Status:      models.FeeStatusPartial,
	}

	require.NoError(t, repo.Record(context.Background(), payment, fee))
	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.PaymentDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryRecordRollsBackOnFeeUpdateFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fee_payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE student_fees SET amount_paid").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Record(context.Background(), &models.Payment{TenantID: "t1"}, &models.FeeRecord{ID: "fee-1", TenantID: "t1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryVoid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE fee_payments SET status").
		WithArgs("t1", "p1", models.PaymentStatusVoid, models.PaymentStatusPosted).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE student_fees SET amount_paid").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payment := &models.Payment{ID: "p1", TenantID: "t1", Amount: 20000}
	fee := &models.FeeRecord{ID: "fee-1", TenantID: "t1", TotalAmount: 70000, Balance: 70000, Status: models.FeeStatusPending}

	require.NoError(t, repo.Void(context.Background(), payment, fee))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryVoidAlreadyVoid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE fee_payments SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Void(context.Background(), &models.Payment{ID: "p1", TenantID: "t1"}, &models.FeeRecord{ID: "fee-1", TenantID: "t1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "student_fee_id", "student_id", "amount", "payment_method", "reference_number", "receipt_number", "status", "received_by", "payment_date"}).
		AddRow("p1", "t1", "fee-1", "s1", 20000, "cash", "", "RCT-1", "posted", "u1", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tenant_id, student_fee_id, student_id, amount, payment_method, reference_number, receipt_number, status, received_by, payment_date FROM fee_payments WHERE tenant_id = $1 AND student_id = $2 ORDER BY payment_date DESC LIMIT 50 OFFSET 0")).
		WithArgs("t1", "s1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM fee_payments WHERE tenant_id = $1 AND student_id = $2")).
		WithArgs("t1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), "t1", models.PaymentFilter{StudentID: "s1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
