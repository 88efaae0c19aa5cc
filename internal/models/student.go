package models

import "time"

// Student represents a learner as consumed by the payment counter. Students are
// created and edited by the admission workflows; this service only reads them.
type Student struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	AdmissionNo string    `db:"admission_number" json:"admission_number"`
	FullName    string    `db:"full_name" json:"full_name"`
	ClassName   string    `db:"class_name" json:"class_name"`
	IsBoarding  bool      `db:"is_boarding" json:"is_boarding"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ResolvedStudent pairs a student with their latest fee record. FeeRecord is
// nil when the student has no fee record yet; that is a successful resolution.
type ResolvedStudent struct {
	Student   Student    `json:"student"`
	FeeRecord *FeeRecord `json:"fee_record,omitempty"`
	Strategy  string     `json:"strategy"`
}

// Resolution strategy labels reported back to the till UI and to metrics.
const (
	ResolveStrategyBarcode     = "barcode_ordinal"
	ResolveStrategyAdmissionNo = "admission_number"
	ResolveStrategyStudentID   = "student_id"
)
