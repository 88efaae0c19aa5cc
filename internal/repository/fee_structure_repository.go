package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// FeeStructureRepository reads tenant-level fee templates. Read-only.
type FeeStructureRepository struct {
	db *sqlx.DB
}

// NewFeeStructureRepository constructs a FeeStructureRepository.
func NewFeeStructureRepository(db *sqlx.DB) *FeeStructureRepository {
	return &FeeStructureRepository{db: db}
}

const structureColumns = `id, tenant_id, name, level, fee_type, amount, mandatory, active, created_at`

// ListActive returns the tenant's active fee structure lines.
func (r *FeeStructureRepository) ListActive(ctx context.Context, tenantID string) ([]models.FeeStructureLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_structures WHERE tenant_id = $1 AND active = true ORDER BY name ASC`, structureColumns)
	var lines []models.FeeStructureLine
	if err := r.db.SelectContext(ctx, &lines, query, tenantID); err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	return lines, nil
}

// FindByIDs resolves the selected structure lines. Missing ids simply do not
// appear in the result; the caller decides whether that is an error.
func (r *FeeStructureRepository) FindByIDs(ctx context.Context, tenantID string, ids []string) ([]models.FeeStructureLine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM fee_structures WHERE tenant_id = ? AND id IN (?)`, structureColumns), tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("build fee structure query: %w", err)
	}
	query = r.db.Rebind(query)
	var lines []models.FeeStructureLine
	if err := r.db.SelectContext(ctx, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("find fee structures: %w", err)
	}
	return lines, nil
}
