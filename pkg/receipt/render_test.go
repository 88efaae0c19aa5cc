package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() Data {
	return Data{
		SchoolName:      "Greenfield Academy",
		Motto:           "Knowledge is Light",
		Address:         "PO Box 123, Nakuru",
		Phone:           "+254700000000",
		ReceiptNumber:   "RCT-20260314092653-1A2B3C",
		PaymentDate:     time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		StudentName:     "Achieng Mary",
		AdmissionNumber: "ADM-100",
		ClassName:       "Form 2B",
		TermName:        "Term 1",
		AcademicYear:    "2026",
		Amount:          20000,
		PreviousBalance: 70000,
		NewBalance:      50000,
		Method:          "cash",
		CashierName:     "J. Otieno",
		Currency:        "KES",
		ShowBalance:     true,
		ShowQR:          true,
	}
}

func TestRenderHTML(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	page, err := r.RenderHTML(sampleData())
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "Greenfield Academy")
	assert.Contains(t, html, "RCT-20260314092653-1A2B3C")
	assert.Contains(t, html, "KES 20,000")
	assert.Contains(t, html, "KES 50,000")
	assert.Contains(t, html, `onload="window.print()"`)
	assert.Contains(t, html, "data:image/png;base64,")
}

func TestRenderHTMLHidesBalanceAndQR(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	data := sampleData()
	data.ShowBalance = false
	data.ShowQR = false
	page, err := r.RenderHTML(data)
	require.NoError(t, err)

	html := string(page)
	assert.NotContains(t, html, "New Balance")
	assert.NotContains(t, html, "data:image/png;base64,")
}

func TestRenderPDF(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	pdf, err := r.RenderPDF(sampleData())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf[:5]), "%PDF-"))
}

func TestRenderIsDeterministic(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	first, err := r.RenderHTML(sampleData())
	require.NoError(t, err)
	second, err := r.RenderHTML(sampleData())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
