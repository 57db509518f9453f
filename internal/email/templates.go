package email

import "html/template"

var templates = map[string]*template.Template{
	"invoice":  template.Must(template.New("invoice").Parse(invoiceTmpl)),
	"reminder": template.Must(template.New("reminder").Parse(reminderTmpl)),
	"receipt":  template.Must(template.New("receipt").Parse(receiptTmpl)),
}

const invoiceTmpl = `
<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: {{.BrandColor}};">{{.OrgName}}</h2>
  <p>You have received invoice <strong>{{.InvoiceNumber}}</strong>.</p>
  <p>Amount due: <strong>{{.AmountDue}}</strong>{{if .DueDate}} &mdash; due {{.DueDate}}{{end}}.</p>
  {{if .PayURL}}
  <p>
    <a href="{{.PayURL}}" style="background: {{.BrandColor}}; color: #fff; padding: 10px 24px; text-decoration: none; border-radius: 4px;">
      View &amp; pay invoice
    </a>
  </p>
  {{end}}
</div>
`

const reminderTmpl = `
<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: {{.BrandColor}};">{{.OrgName}}</h2>
  <p>This is a friendly reminder that invoice <strong>{{.InvoiceNumber}}</strong> is overdue.</p>
  <p>Amount due: <strong>{{.AmountDue}}</strong>{{if .DueDate}} &mdash; was due {{.DueDate}}{{end}}.</p>
  {{if .PayURL}}
  <p>
    <a href="{{.PayURL}}" style="background: {{.BrandColor}}; color: #fff; padding: 10px 24px; text-decoration: none; border-radius: 4px;">
      Pay now
    </a>
  </p>
  {{end}}
</div>
`

const receiptTmpl = `
<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: {{.BrandColor}};">{{.OrgName}}</h2>
  <p>We received your payment of <strong>{{.PaymentAmount}}</strong> for invoice <strong>{{.InvoiceNumber}}</strong>.</p>
  <p>Remaining balance: <strong>{{.AmountDue}}</strong>.</p>
  <p>Thank you!</p>
</div>
`
