package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// SettingsRepository reads tenant display data consumed by receipts.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Tenant fetches the tenant record.
func (r *SettingsRepository) Tenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	const query = `SELECT id, name, motto, address, phone, email, logo_url FROM tenants WHERE id = $1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, tenantID); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ReceiptSettings fetches the tenant's receipt preferences, falling back to
// sensible defaults when none are configured.
func (r *SettingsRepository) ReceiptSettings(ctx context.Context, tenantID string) (*models.ReceiptSettings, error) {
	const query = `SELECT tenant_id, header_text, footer_text, show_balance, show_qr, paper_width_mm FROM receipt_settings WHERE tenant_id = $1`
	var settings models.ReceiptSettings
	if err := r.db.GetContext(ctx, &settings, query, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ReceiptSettings{
				TenantID:     tenantID,
				ShowBalance:  true,
				ShowQR:       true,
				PaperWidthMM: 80,
			}, nil
		}
		return nil, err
	}
	return &settings, nil
}
