package printing

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DocumentKind selects the invoice heading and file prefix
type DocumentKind string

const (
	KindInvoice  DocumentKind = "invoice"
	KindProforma DocumentKind = "proforma"
)

// Title returns the Czech document heading
func (k DocumentKind) Title() string {
	if k == KindProforma {
		return "Zálohová faktura"
	}
	return "Faktura"
}

var czech = message.NewPrinter(language.Czech)

// FormatMoney formats amount the Czech way, e.g. "1 234,50 Kč"
func FormatMoney(amount decimal.Decimal, currency string) string {
	symbol := currency
	if currency == "" || strings.EqualFold(currency, "CZK") {
		symbol = "Kč"
	}
	return czech.Sprintf("%.2f", amount.InexactFloat64()) + " " + symbol
}

// FormatDate formats t as d. m. yyyy
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2. 1. 2006")
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal, currency string) string { return FormatMoney(d, currency) },
	"date":  FormatDate,
	"datep": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return FormatDate(*t)
	},
	"positive": func(d decimal.Decimal) bool { return d.IsPositive() },
}).Parse(invoiceHTML))

type templateData struct {
	Title string
	billing.InvoiceData
}

// RenderHTML fills the invoice template with data
func RenderHTML(kind DocumentKind, data billing.InvoiceData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, templateData{Title: kind.Title(), InvoiceData: data}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const invoiceHTML = `<!DOCTYPE html>
<html lang="cs">
<head>
<meta charset="UTF-8">
<title>{{.Title}} {{.Number}}</title>
<style>
body { font-family: "DejaVu Sans", Arial, sans-serif; font-size: 11px; color: #222; }
h1 { font-size: 20px; margin: 0 0 4px; }
.parties { display: flex; justify-content: space-between; margin: 16px 0; }
.party { width: 48%; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 4px 6px; border-bottom: 1px solid #ddd; text-align: left; }
td.num, th.num { text-align: right; }
.totals td { border: none; }
.grand td { font-weight: bold; font-size: 13px; }
</style>
</head>
<body>
<h1>{{.Title}} {{.Number}}</h1>
<div>Objednávka {{.OrderNumber}} &middot; Vystaveno {{date .IssuedAt}}{{with datep .DueAt}} &middot; Splatnost {{.}}{{end}}</div>
<div class="parties">
  <div class="party">
    <strong>Dodavatel</strong><br>
    {{.Seller.Name}}<br>
    {{with .Seller.Street}}{{.}}<br>{{end}}
    {{.Seller.PostalCode}} {{.Seller.City}}<br>
    {{.Seller.Country}}<br>
    {{with .Seller.ICO}}IČO: {{.}}<br>{{end}}
    {{with .Seller.DIC}}DIČ: {{.}}<br>{{end}}
    {{with .Seller.Email}}{{.}}<br>{{end}}
    {{with .Seller.Phone}}{{.}}{{end}}
  </div>
  <div class="party">
    <strong>Odběratel</strong><br>
    {{.Customer.Name}}<br>
    {{with .Customer.Street}}{{.}}<br>{{end}}
    {{.Customer.PostalCode}} {{.Customer.City}}<br>
    {{.Customer.Country}}<br>
    {{with .Customer.Email}}{{.}}<br>{{end}}
    {{with .Customer.Phone}}{{.}}{{end}}
  </div>
</div>
<table>
  <thead><tr><th>Položka</th><th>Kód</th><th class="num">Množství</th><th class="num">Cena/ks</th><th class="num">Celkem</th></tr></thead>
  <tbody>
  {{- range .Lines}}
    <tr><td>{{.Name}}</td><td>{{.SKU}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .UnitPrice $.Currency}}</td><td class="num">{{money .Total $.Currency}}</td></tr>
  {{- end}}
  </tbody>
</table>
<table class="totals">
  <tr><td class="num">Mezisoučet</td><td class="num">{{money .Subtotal .Currency}}</td></tr>
  <tr><td class="num">DPH</td><td class="num">{{money .Tax .Currency}}</td></tr>
  <tr><td class="num">Doprava</td><td class="num">{{money .ShippingCost .Currency}}</td></tr>
  {{- if positive .Discount}}
  <tr><td class="num">Sleva</td><td class="num">-{{money .Discount .Currency}}</td></tr>
  {{- end}}
  <tr class="grand"><td class="num">Celkem k úhradě</td><td class="num">{{money .Total .Currency}}</td></tr>
</table>
{{with .PaymentRef}}<p>Platba: {{.}}</p>{{end}}
</body>
</html>
`
