package receipt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Data is the full snapshot a receipt is rendered from. Rendering is pure:
// the same Data always produces the same document.
type Data struct {
	SchoolName string
	Motto      string
	Address    string
	Phone      string
	Email      string

	HeaderText string
	FooterText string

	ReceiptNumber string
	PaymentDate   time.Time

	StudentName     string
	AdmissionNumber string
	ClassName       string
	TermName        string
	AcademicYear    string

	Amount          int64
	PreviousBalance int64
	NewBalance      int64
	Method          string
	Reference       string
	CashierName     string

	Currency    string
	ShowBalance bool
	ShowQR      bool
}

const defaultPaperWidthMM = 80.0

// Renderer produces printable receipt documents in a fixed 80mm layout.
type Renderer struct {
	htmlTmpl *template.Template
}

// NewRenderer parses the HTML template once and returns a renderer.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("receipt").Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}
	return &Renderer{htmlTmpl: tmpl}, nil
}

// RenderPDF produces the thermal-printer PDF for the receipt.
func (r *Renderer) RenderPDF(data Data) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: defaultPaperWidthMM, Ht: 220},
	})
	pdf.SetMargins(4, 6, 4)
	pdf.SetAutoPageBreak(true, 6)
	pdf.AddPage()

	width := defaultPaperWidthMM - 8

	pdf.SetFont("Courier", "B", 11)
	pdf.CellFormat(width, 5, data.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Courier", "", 7)
	if data.Motto != "" {
		pdf.CellFormat(width, 3.5, data.Motto, "", 1, "C", false, 0, "")
	}
	if data.Address != "" {
		pdf.CellFormat(width, 3.5, data.Address, "", 1, "C", false, 0, "")
	}
	if data.Phone != "" {
		pdf.CellFormat(width, 3.5, "Tel: "+data.Phone, "", 1, "C", false, 0, "")
	}
	if data.HeaderText != "" {
		pdf.CellFormat(width, 3.5, data.HeaderText, "", 1, "C", false, 0, "")
	}

	divider(pdf, width)
	pdf.SetFont("Courier", "B", 9)
	pdf.CellFormat(width, 4.5, "OFFICIAL RECEIPT", "", 1, "C", false, 0, "")
	pdf.SetFont("Courier", "", 8)
	row(pdf, width, "Receipt No", data.ReceiptNumber)
	row(pdf, width, "Date", data.PaymentDate.Format("02 Jan 2006 15:04"))
	if data.TermName != "" {
		row(pdf, width, "Term", fmt.Sprintf("%s %s", data.TermName, data.AcademicYear))
	}

	divider(pdf, width)
	row(pdf, width, "Student", data.StudentName)
	row(pdf, width, "Adm No", data.AdmissionNumber)
	if data.ClassName != "" {
		row(pdf, width, "Class", data.ClassName)
	}

	divider(pdf, width)
	pdf.SetFont("Courier", "B", 9)
	row(pdf, width, "Amount Paid", data.Currency+" "+FormatAmount(data.Amount))
	pdf.SetFont("Courier", "", 8)
	row(pdf, width, "Method", data.Method)
	if data.Reference != "" {
		row(pdf, width, "Reference", data.Reference)
	}
	if data.ShowBalance {
		row(pdf, width, "Prev Balance", data.Currency+" "+FormatAmount(data.PreviousBalance))
		row(pdf, width, "New Balance", data.Currency+" "+FormatAmount(data.NewBalance))
	}
	if data.CashierName != "" {
		row(pdf, width, "Served By", data.CashierName)
	}

	if data.ShowQR {
		png, err := r.qrPNG(data)
		if err != nil {
			return nil, err
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("receipt-qr", opts, bytes.NewReader(png))
		x := (defaultPaperWidthMM - 22) / 2
		pdf.ImageOptions("receipt-qr", x, pdf.GetY()+2, 22, 22, false, opts, 0, "")
		pdf.SetY(pdf.GetY() + 26)
	}

	divider(pdf, width)
	pdf.SetFont("Courier", "", 7)
	footer := data.FooterText
	if footer == "" {
		footer = "Thank you"
	}
	pdf.CellFormat(width, 3.5, footer, "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderHTML produces a self-contained print window document. The page prints
// itself once on load; reprinting is idempotent.
func (r *Renderer) RenderHTML(data Data) ([]byte, error) {
	view := htmlView{
		Data:           data,
		AmountFmt:      FormatAmount(data.Amount),
		PrevBalanceFmt: FormatAmount(data.PreviousBalance),
		NewBalanceFmt:  FormatAmount(data.NewBalance),
		PaymentDateFmt: data.PaymentDate.Format("02 Jan 2006 15:04"),
		VerifyPayload:  VerificationPayload(data.ReceiptNumber, data.AdmissionNumber),
	}
	if data.ShowQR {
		png, err := r.qrPNG(data)
		if err != nil {
			return nil, err
		}
		view.QRDataURI = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}

	buf := &bytes.Buffer{}
	if err := r.htmlTmpl.Execute(buf, view); err != nil {
		return nil, fmt.Errorf("render receipt html: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) qrPNG(data Data) ([]byte, error) {
	payload := VerificationPayload(data.ReceiptNumber, data.AdmissionNumber)
	png, err := qrcode.Encode(payload, qrcode.Medium, 128)
	if err != nil {
		return nil, fmt.Errorf("encode receipt qr: %w", err)
	}
	return png, nil
}

func divider(pdf *gofpdf.Fpdf, width float64) {
	pdf.SetFont("Courier", "", 7)
	pdf.CellFormat(width, 3, "----------------------------------------", "", 1, "C", false, 0, "")
}

func row(pdf *gofpdf.Fpdf, width float64, label, value string) {
	pdf.CellFormat(width*0.42, 4, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(width*0.58, 4, value, "", 1, "R", false, 0, "")
}

type htmlView struct {
	Data
	AmountFmt      string
	PrevBalanceFmt string
	NewBalanceFmt  string
	PaymentDateFmt string
	VerifyPayload  string
	QRDataURI      template.URL
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.ReceiptNumber}}</title>
<style>
  body { font-family: "Courier New", monospace; width: 80mm; margin: 0 auto; font-size: 11px; }
  .center { text-align: center; }
  .row { display: flex; justify-content: space-between; }
  .bold { font-weight: bold; }
  hr { border: none; border-top: 1px dashed #000; }
  img.qr { display: block; margin: 4px auto; width: 24mm; height: 24mm; }
  @media print { body { width: auto; } }
</style>
</head>
<body onload="window.print()">
  <div class="center bold">{{.SchoolName}}</div>
  {{if .Motto}}<div class="center">{{.Motto}}</div>{{end}}
  {{if .Address}}<div class="center">{{.Address}}</div>{{end}}
  {{if .Phone}}<div class="center">Tel: {{.Phone}}</div>{{end}}
  {{if .HeaderText}}<div class="center">{{.HeaderText}}</div>{{end}}
  <hr>
  <div class="center bold">OFFICIAL RECEIPT</div>
  <div class="row"><span>Receipt No</span><span>{{.ReceiptNumber}}</span></div>
  <div class="row"><span>Date</span><span>{{.PaymentDateFmt}}</span></div>
  {{if .TermName}}<div class="row"><span>Term</span><span>{{.TermName}} {{.AcademicYear}}</span></div>{{end}}
  <hr>
  <div class="row"><span>Student</span><span>{{.StudentName}}</span></div>
  <div class="row"><span>Adm No</span><span>{{.AdmissionNumber}}</span></div>
  {{if .ClassName}}<div class="row"><span>Class</span><span>{{.ClassName}}</span></div>{{end}}
  <hr>
  <div class="row bold"><span>Amount Paid</span><span>{{.Currency}} {{.AmountFmt}}</span></div>
  <div class="row"><span>Method</span><span>{{.Method}}</span></div>
  {{if .Reference}}<div class="row"><span>Reference</span><span>{{.Reference}}</span></div>{{end}}
  {{if .ShowBalance}}
  <div class="row"><span>Prev Balance</span><span>{{.Currency}} {{.PrevBalanceFmt}}</span></div>
  <div class="row"><span>New Balance</span><span>{{.Currency}} {{.NewBalanceFmt}}</span></div>
  {{end}}
  {{if .CashierName}}<div class="row"><span>Served By</span><span>{{.CashierName}}</span></div>{{end}}
  {{if .QRDataURI}}<img class="qr" src="{{.QRDataURI}}" alt="{{.VerifyPayload}}">{{end}}
  <hr>
  <div class="center">{{if .FooterText}}{{.FooterText}}{{else}}Thank you{{end}}</div>
</body>
</html>`
