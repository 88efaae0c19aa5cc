package models

import "time"

// PaymentMethod enumerates accepted tender types at the counter.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodBank        PaymentMethod = "bank"
	PaymentMethodCard        PaymentMethod = "card"
)

// PaymentStatus marks whether a posted payment still counts toward the ledger.
// Payments are append-only; void is the compensation/reversal marker, rows are
// never deleted.
type PaymentStatus string

const (
	PaymentStatusPosted PaymentStatus = "posted"
	PaymentStatusVoid   PaymentStatus = "void"
)

// Payment is one immutable transaction against a fee record.
type Payment struct {
	ID              string        `db:"id" json:"id"`
	TenantID        string        `db:"tenant_id" json:"tenant_id"`
	StudentFeeID    string        `db:"student_fee_id" json:"student_fee_id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	Amount          int64         `db:"amount" json:"amount"`
	Method          PaymentMethod `db:"payment_method" json:"payment_method"`
	ReferenceNumber string        `db:"reference_number" json:"reference_number"`
	ReceiptNumber   string        `db:"receipt_number" json:"receipt_number"`
	Status          PaymentStatus `db:"status" json:"status"`
	ReceivedBy      string        `db:"received_by" json:"received_by"`
	PaymentDate     time.Time     `db:"payment_date" json:"payment_date"`
}

// PaymentResult is returned to the till after a successful recording.
type PaymentResult struct {
	Payment         Payment   `json:"payment"`
	ReceiptNumber   string    `json:"receipt_number"`
	PreviousBalance int64     `json:"previous_balance"`
	NewBalance      int64     `json:"new_balance"`
	FeeRecord       FeeRecord `json:"fee_record"`
}

// PaymentFilter narrows payment listings for reconciliation views.
type PaymentFilter struct {
	StudentID string
	From      *time.Time
	To        *time.Time
	Status    *PaymentStatus
	Page      int
	PageSize  int
}
