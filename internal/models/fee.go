package models

import "time"

// FeeStatus is fully determined by the balance/amount-paid pair.
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPartial FeeStatus = "partial"
	FeeStatusPaid    FeeStatus = "paid"
)

// FeeStatusFor derives the status from the ledger amounts: paid when nothing
// is owed (overpayment included), partial once any amount has been received.
func FeeStatusFor(totalAmount, amountPaid int64) FeeStatus {
	balance := totalAmount - amountPaid
	switch {
	case balance <= 0:
		return FeeStatusPaid
	case amountPaid > 0:
		return FeeStatusPartial
	default:
		return FeeStatusPending
	}
}

// FeeRecord is the per-student, per-term fee ledger. Amounts are integer minor
// units. Invariant: Balance == TotalAmount - AmountPaid after every mutation.
type FeeRecord struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	TermID      *string   `db:"term_id" json:"term_id,omitempty"`
	TotalAmount int64     `db:"total_amount" json:"total_amount"`
	AmountPaid  int64     `db:"amount_paid" json:"amount_paid"`
	Balance     int64     `db:"balance" json:"balance"`
	Status      FeeStatus `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FeeStructureLine is a tenant-level template fee used when assigning a new
// fee record. Read-only for this service.
type FeeStructureLine struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	FeeType   string    `db:"fee_type" json:"fee_type"`
	Amount    int64     `db:"amount" json:"amount"`
	Mandatory bool      `db:"mandatory" json:"mandatory"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
