package invoice

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	apporder "github.com/onlinekart/backend/internal/application/order"
	"github.com/shopspring/decimal"
)

// invoiceTemplate is the built-in invoice layout. Styling is inlined
// so the page renders identically inside headless Chrome.
const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice {{.InvoiceNumber}}</title>
<style>
  body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; color: #1f2430; margin: 0; }
  .header { display: flex; justify-content: space-between; align-items: baseline; border-bottom: 2px solid #1f2430; padding-bottom: 12px; }
  .header h1 { font-size: 24px; margin: 0; }
  .meta { margin-top: 16px; font-size: 12px; line-height: 1.6; }
  .meta .label { color: #6b7280; }
  table { width: 100%; border-collapse: collapse; margin-top: 24px; font-size: 12px; }
  th { text-align: left; border-bottom: 1px solid #d1d5db; padding: 6px 4px; text-transform: uppercase; font-size: 10px; color: #6b7280; }
  td { border-bottom: 1px solid #e5e7eb; padding: 8px 4px; }
  td.num, th.num { text-align: right; }
  .total-row td { border-bottom: none; font-weight: bold; padding-top: 12px; }
  .footer { margin-top: 40px; font-size: 10px; color: #6b7280; }
</style>
</head>
<body>
  <div class="header">
    <h1>Online Kart</h1>
    <div>Invoice {{.InvoiceNumber}}</div>
  </div>
  <div class="meta">
    <div><span class="label">Billed to:</span> {{.CustomerName}} ({{.CustomerEmail}})</div>
    <div><span class="label">Shipping address:</span> {{.Order.ShippingAddress}}</div>
    <div><span class="label">Order date:</span> {{.OrderDate}}</div>
    <div><span class="label">Status:</span> {{.Order.Status}}</div>
  </div>
  <table>
    <thead>
      <tr>
        <th>Item</th>
        <th class="num">Qty</th>
        <th class="num">Unit price</th>
        <th class="num">Subtotal</th>
      </tr>
    </thead>
    <tbody>
      {{range .Order.Items}}
      <tr>
        <td>{{.Title}}</td>
        <td class="num">{{.Quantity}}</td>
        <td class="num">{{money .UnitPrice}}</td>
        <td class="num">{{money .Subtotal}}</td>
      </tr>
      {{end}}
      <tr class="total-row">
        <td colspan="3">Total</td>
        <td class="num">{{money .Order.TotalAmount}}</td>
      </tr>
    </tbody>
  </table>
  <div class="footer">Generated on {{.GeneratedAt}}. Thank you for shopping with Online Kart.</div>
</body>
</html>`

// templateData is what the invoice template renders
type templateData struct {
	apporder.InvoiceData
	InvoiceNumber string
	OrderDate     string
	GeneratedAt   string
}

var invoiceTmpl = template.Must(
	template.New("invoice").
		Funcs(template.FuncMap{
			"money": func(d decimal.Decimal) string {
				return "$" + d.StringFixed(2)
			},
		}).
		Parse(invoiceTemplate))

// BuildHTML renders the invoice HTML for the given order data
func BuildHTML(data *apporder.InvoiceData) (string, error) {
	if data == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "invoice data is nil", nil)
	}

	var buf bytes.Buffer
	err := invoiceTmpl.Execute(&buf, templateData{
		InvoiceData:   *data,
		InvoiceNumber: InvoiceNumber(data),
		OrderDate:     data.Order.CreatedAt.Format("January 2, 2006"),
		GeneratedAt:   time.Now().Format("January 2, 2006"),
	})
	if err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to render invoice template", err)
	}

	return buf.String(), nil
}

// InvoiceNumber derives a short human-readable invoice number from the order ID
func InvoiceNumber(data *apporder.InvoiceData) string {
	id := data.Order.ID.String()
	return fmt.Sprintf("INV-%s", id[:8])
}

// Generator produces invoice PDFs from order data
type Generator struct {
	renderer PDFRenderer
}

// NewGenerator creates a Generator backed by the given renderer
func NewGenerator(renderer PDFRenderer) *Generator {
	return &Generator{renderer: renderer}
}

// Generate renders the invoice PDF for an order
func (g *Generator) Generate(ctx context.Context, data *apporder.InvoiceData) ([]byte, error) {
	html, err := BuildHTML(data)
	if err != nil {
		return nil, err
	}

	result, err := g.renderer.Render(ctx, &RenderRequest{
		HTML:  html,
		Title: InvoiceNumber(data),
	})
	if err != nil {
		return nil, err
	}

	return result.PDFData, nil
}
