package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const purchaseOrderTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<title>Purchase Order {{.OrderNumber}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 11pt; color: #222; }
  h1 { font-size: 18pt; margin: 0 0 4mm 0; }
  .company { font-size: 13pt; font-weight: bold; }
  .meta { width: 100%; margin: 6mm 0; }
  .meta td { padding: 1mm 2mm; vertical-align: top; }
  table.lines { width: 100%; border-collapse: collapse; }
  table.lines th { background: #eef1f6; text-align: left; border-bottom: 1px solid #888; padding: 2mm; }
  table.lines td { border-bottom: 1px solid #ddd; padding: 2mm; }
  .num { text-align: right; }
  .total td { font-weight: bold; border-bottom: none; }
  .notes { margin-top: 8mm; white-space: pre-wrap; }
</style>
</head>
<body>
{{if .CompanyName}}<div class="company">{{.CompanyName}}</div>{{end}}
<h1>Purchase Order {{.OrderNumber}}</h1>
<table class="meta">
  <tr>
    <td><strong>Supplier</strong><br>{{.SupplierName}}{{if .SupplierEmail}}<br>{{.SupplierEmail}}{{end}}</td>
    <td><strong>Status</strong><br>{{.Status}}</td>
    <td><strong>Date</strong><br>{{formatDate .CreatedAt}}{{if .SentAt}}<br>Sent {{formatDate .SentAt}}{{end}}</td>
  </tr>
  {{if .PaymentTerms}}<tr><td colspan="3"><strong>Payment terms</strong>: {{.PaymentTerms}}</td></tr>{{end}}
</table>
<table class="lines">
  <thead>
    <tr><th>#</th><th>Code</th><th>Product</th><th class="num">Ordered</th><th class="num">Received</th><th class="num">Unit price</th><th class="num">Amount</th></tr>
  </thead>
  <tbody>
  {{range .Lines}}
    <tr>
      <td>{{.LineNo}}</td>
      <td>{{.ProductCode}}</td>
      <td>{{.ProductName}}</td>
      <td class="num">{{formatQuantity .OrderedQuantity}}</td>
      <td class="num">{{formatQuantity .ReceivedQuantity}}</td>
      <td class="num">{{formatMoney .UnitPrice}}</td>
      <td class="num">{{formatMoney .Amount}}</td>
    </tr>
  {{end}}
    <tr class="total"><td colspan="6" class="num">Total</td><td class="num">{{formatMoney .TotalAmount}}</td></tr>
  </tbody>
</table>
{{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}
</body>
</html>`

// orderView is the template data for one purchase order
type orderView struct {
	Lang          string
	CompanyName   string
	OrderNumber   string
	SupplierName  string
	SupplierEmail string
	Status        string
	PaymentTerms  string
	Notes         string
	CreatedAt     time.Time
	SentAt        *time.Time
	TotalAmount   decimal.Decimal
	Lines         []lineView
}

type lineView struct {
	LineNo           int
	ProductCode      string
	ProductName      string
	OrderedQuantity  int64
	ReceivedQuantity int64
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
}

func newOrderView(order *procurement.PurchaseOrder, companyName string, tag language.Tag) orderView {
	v := orderView{
		Lang:          tag.String(),
		CompanyName:   companyName,
		OrderNumber:   order.OrderNumber,
		SupplierName:  order.SupplierName,
		SupplierEmail: order.SupplierEmail,
		Status:        statusText(order.Status, tag),
		PaymentTerms:  order.PaymentTerms,
		Notes:         order.Notes,
		CreatedAt:     order.CreatedAt,
		SentAt:        order.SentAt,
		TotalAmount:   order.TotalAmount,
		Lines:         make([]lineView, 0, len(order.Lines)),
	}
	for i := range order.Lines {
		l := &order.Lines[i]
		v.Lines = append(v.Lines, lineView{
			LineNo:           l.LineNo,
			ProductCode:      l.ProductCode,
			ProductName:      l.ProductName,
			OrderedQuantity:  l.OrderedQuantity,
			ReceivedQuantity: l.ReceivedQuantity,
			UnitPrice:        l.UnitPrice,
			Amount:           l.Amount(),
		})
	}
	return v
}

// templateEngine binds order views to the purchase order template
type templateEngine struct {
	tmpl *template.Template
	tag  language.Tag
}

func newTemplateEngine(tag language.Tag) (*templateEngine, error) {
	p := message.NewPrinter(tag)
	funcs := template.FuncMap{
		"formatMoney": func(d decimal.Decimal) string {
			return formatMoney(p, d)
		},
		"formatQuantity": func(q int64) string {
			return p.Sprint(number.Decimal(q))
		},
		"formatDate": func(v any) string {
			switch t := v.(type) {
			case time.Time:
				return formatDate(t)
			case *time.Time:
				if t == nil {
					return ""
				}
				return formatDate(*t)
			}
			return ""
		},
	}
	tmpl, err := template.New("purchase_order").Funcs(funcs).Parse(purchaseOrderTemplate)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "parse purchase order template", err)
	}
	return &templateEngine{tmpl: tmpl, tag: tag}, nil
}

func (e *templateEngine) render(order *procurement.PurchaseOrder, companyName string) (string, error) {
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, newOrderView(order, companyName, e.tag)); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed,
			fmt.Sprintf("render purchase order %s", order.OrderNumber), err)
	}
	return buf.String(), nil
}

// formatMoney formats an amount with two decimals and locale grouping,
// e.g. 1234.5 is "1,234.50" in English and "1.234,50" in German
func formatMoney(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return p.Sprint(number.Decimal(f, number.Scale(2)))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func statusText(s procurement.Status, tag language.Tag) string {
	return cases.Title(tag).String(strings.ReplaceAll(s.String(), "_", " "))
}
