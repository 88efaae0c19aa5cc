package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

type mockPaymentRepo struct {
	payments  map[string]models.Payment
	recorded  []models.Payment
	savedFees []models.FeeRecord
	voided    []string
	calls     int
}

func (m *mockPaymentRepo) Record(ctx context.Context, payment *models.Payment, fee *models.FeeRecord) error {
	m.calls++
	m.recorded = append(m.recorded, *payment)
	m.savedFees = append(m.savedFees, *fee)
	return nil
}

func (m *mockPaymentRepo) Void(ctx context.Context, payment *models.Payment, fee *models.FeeRecord) error {
	m.calls++
	m.voided = append(m.voided, payment.ID)
	m.savedFees = append(m.savedFees, *fee)
	return nil
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Payment, error) {
	m.calls++
	if p, ok := m.payments[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) List(ctx context.Context, tenantID string, filter models.PaymentFilter) ([]models.Payment, int, error) {
	m.calls++
	out := make([]models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out, len(out), nil
}

type mockFeeRepo struct {
	fees  map[string]models.FeeRecord
	calls int
}

func (m *mockFeeRepo) FindByID(ctx context.Context, tenantID, id string) (*models.FeeRecord, error) {
	m.calls++
	if f, ok := m.fees[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeeRepo) Create(ctx context.Context, fee *models.FeeRecord) error {
	m.calls++
	if fee.ID == "" {
		fee.ID = "generated"
	}
	if m.fees == nil {
		m.fees = make(map[string]models.FeeRecord)
	}
	m.fees[fee.ID] = *fee
	return nil
}

type mockAudit struct {
	logs []models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func newPaymentFixture(balanceTotal, paid int64) (*PaymentService, *mockPaymentRepo, *mockFeeRepo, *mockAudit) {
	payments := &mockPaymentRepo{payments: make(map[string]models.Payment)}
	fees := &mockFeeRepo{fees: map[string]models.FeeRecord{
		"fee-1": {
			ID:          "fee-1",
			TenantID:    "t1",
			StudentID:   "s1",
			TotalAmount: balanceTotal,
			AmountPaid:  paid,
			Balance:     balanceTotal - paid,
			Status:      models.FeeStatusFor(balanceTotal, paid),
		},
	}}
	audit := &mockAudit{}
	svc := NewPaymentService(payments, fees, audit, nil, validator.New(), zap.NewNop())
	return svc, payments, fees, audit
}

func TestPaymentRecordPartial(t *testing.T) {
	svc, payments, _, audit := newPaymentFixture(70000, 0)

	result, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		StudentFeeID: "fee-1",
		Amount:       20000,
		Method:       models.PaymentMethodCash,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(70000), result.PreviousBalance)
	assert.Equal(t, int64(50000), result.NewBalance)
	assert.Equal(t, result.FeeRecord.TotalAmount-result.FeeRecord.AmountPaid, result.FeeRecord.Balance)
	assert.Equal(t, models.FeeStatusPartial, result.FeeRecord.Status)
	assert.Equal(t, models.PaymentStatusPosted, result.Payment.Status)
	assert.True(t, strings.HasPrefix(result.ReceiptNumber, "RCT-"))
	require.Len(t, payments.recorded, 1)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionPaymentRecord, audit.logs[0].Action)
}

func TestPaymentRecordSettlesFee(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(70000, 50000)

	result, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		StudentFeeID: "fee-1",
		Amount:       20000,
		Method:       models.PaymentMethodMobileMoney,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.NewBalance)
	assert.Equal(t, models.FeeStatusPaid, result.FeeRecord.Status)
}

func TestPaymentOverpaymentAllowed(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(70000, 60000)

	result, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		StudentFeeID: "fee-1",
		Amount:       25000,
		Method:       models.PaymentMethodBank,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-15000), result.NewBalance)
	assert.Equal(t, models.FeeStatusPaid, result.FeeRecord.Status)
	assert.Equal(t, result.FeeRecord.TotalAmount-result.FeeRecord.AmountPaid, result.FeeRecord.Balance)
}

func TestPaymentValidationBeforeAnyLookup(t *testing.T) {
	svc, payments, fees, _ := newPaymentFixture(70000, 0)

	cases := []RecordPaymentRequest{
		{StudentFeeID: "fee-1", Amount: 0, Method: models.PaymentMethodCash},
		{StudentFeeID: "fee-1", Amount: -500, Method: models.PaymentMethodCash},
		{StudentFeeID: "fee-1", Amount: 1000, Method: "cheque"},
		{Amount: 1000, Method: models.PaymentMethodCash},
	}
	for _, req := range cases {
		_, err := svc.Record(context.Background(), "t1", "u1", req)
		require.Error(t, err)
	}
	assert.Zero(t, payments.calls)
	assert.Zero(t, fees.calls)
}

func TestPaymentRecordUnknownFee(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(70000, 0)

	_, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		StudentFeeID: "missing",
		Amount:       1000,
		Method:       models.PaymentMethodCash,
	})
	require.Error(t, err)
}

func TestPaymentReceiptNumbersDiffer(t *testing.T) {
	svc, payments, _, _ := newPaymentFixture(70000, 0)

	for i := 0; i < 2; i++ {
		_, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
			StudentFeeID: "fee-1",
			Amount:       1000,
			Method:       models.PaymentMethodCash,
		})
		require.NoError(t, err)
	}
	require.Len(t, payments.recorded, 2)
	assert.NotEqual(t, payments.recorded[0].ReceiptNumber, payments.recorded[1].ReceiptNumber)
}

func TestPaymentVoidRestoresBalance(t *testing.T) {
	svc, payments, fees, audit := newPaymentFixture(70000, 20000)
	payments.payments["p1"] = models.Payment{
		ID:           "p1",
		TenantID:     "t1",
		StudentFeeID: "fee-1",
		StudentID:    "s1",
		Amount:       20000,
		Status:       models.PaymentStatusPosted,
	}

	voided, err := svc.Void(context.Background(), "t1", "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusVoid, voided.Status)
	assert.Contains(t, payments.voided, "p1")

	require.NotEmpty(t, payments.savedFees)
	saved := payments.savedFees[len(payments.savedFees)-1]
	assert.Equal(t, int64(0), saved.AmountPaid)
	assert.Equal(t, int64(70000), saved.Balance)
	assert.Equal(t, models.FeeStatusPending, saved.Status)
	_ = fees

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionPaymentVoid, audit.logs[0].Action)
}

func TestPaymentVoidAlreadyVoid(t *testing.T) {
	svc, payments, _, _ := newPaymentFixture(70000, 20000)
	payments.payments["p1"] = models.Payment{ID: "p1", StudentFeeID: "fee-1", Amount: 20000, Status: models.PaymentStatusVoid}

	_, err := svc.Void(context.Background(), "t1", "u1", "p1")
	require.Error(t, err)
}
