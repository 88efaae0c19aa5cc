package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// TermRepository reads academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs a TermRepository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = `id, tenant_id, name, academic_year, is_current, created_at`

// Current returns the tenant's current term. sql.ErrNoRows when none is
// marked current; fee records then attach to a null term.
func (r *TermRepository) Current(ctx context.Context, tenantID string) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_terms WHERE tenant_id = $1 AND is_current = true LIMIT 1`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, tenantID); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindByID fetches a term within the tenant.
func (r *TermRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_terms WHERE tenant_id = $1 AND id = $2`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, tenantID, id); err != nil {
		return nil, err
	}
	return &term, nil
}
