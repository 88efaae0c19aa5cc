package models

// Tenant is one isolated customer organization. Display data only; tenant
// administration happens elsewhere.
type Tenant struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Motto   string `db:"motto" json:"motto"`
	Address string `db:"address" json:"address"`
	Phone   string `db:"phone" json:"phone"`
	Email   string `db:"email" json:"email"`
	LogoURL string `db:"logo_url" json:"logo_url"`
}

// ReceiptSettings holds per-tenant receipt layout preferences.
type ReceiptSettings struct {
	TenantID     string `db:"tenant_id" json:"tenant_id"`
	HeaderText   string `db:"header_text" json:"header_text"`
	FooterText   string `db:"footer_text" json:"footer_text"`
	ShowBalance  bool   `db:"show_balance" json:"show_balance"`
	ShowQR       bool   `db:"show_qr" json:"show_qr"`
	PaperWidthMM int    `db:"paper_width_mm" json:"paper_width_mm"`
}
