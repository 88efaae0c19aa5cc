package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// StudentRepository reads student records for the payment counter. Students
// are owned by the admission workflows; no writes happen here.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, tenant_id, admission_number, full_name, class_name, is_boarding, active, created_at, updated_at`

// ListActiveSorted returns the tenant's active roster ordered by full name
// ascending. Barcode ordinals index into exactly this ordering, so the sort
// must stay stable across calls.
func (r *StudentRepository) ListActiveSorted(ctx context.Context, tenantID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE tenant_id = $1 AND active = true ORDER BY full_name ASC, id ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, tenantID); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// FindByAdmissionNo fetches a student by admission number within the tenant.
func (r *StudentRepository) FindByAdmissionNo(ctx context.Context, tenantID, admissionNo string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE tenant_id = $1 AND admission_number = $2`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, tenantID, admissionNo); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByID fetches a student by primary identity within the tenant.
func (r *StudentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE tenant_id = $1 AND id = $2`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, tenantID, id); err != nil {
		return nil, err
	}
	return &student, nil
}
