package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/pkg/logger"
	"github.com/bildout/bildout-api/pkg/metrics"
)

type smtpService struct {
	dialer  *gomail.Dialer
	cfg     config.EmailConfig
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewSMTPService creates a gomail-backed sender.
func NewSMTPService(cfg config.EmailConfig, log *logger.Logger, m *metrics.Metrics) Service {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	return &smtpService{
		dialer:  dialer,
		cfg:     cfg,
		log:     log,
		metrics: m,
	}
}

func (s *smtpService) SendInvoice(ctx context.Context, to string, org *model.Organization, invoice *model.Invoice, payURL string) error {
	subject := fmt.Sprintf("Invoice %s from %s", invoice.Number, org.Name)
	return s.send(to, subject, "invoice", invoiceTemplateData(org, invoice, payURL))
}

func (s *smtpService) SendReminder(ctx context.Context, to string, org *model.Organization, invoice *model.Invoice, payURL string) error {
	subject := fmt.Sprintf("Reminder: invoice %s from %s is overdue", invoice.Number, org.Name)
	return s.send(to, subject, "reminder", invoiceTemplateData(org, invoice, payURL))
}

func (s *smtpService) SendReceipt(ctx context.Context, to string, org *model.Organization, invoice *model.Invoice, payment *model.Payment) error {
	subject := fmt.Sprintf("Payment received for invoice %s", invoice.Number)
	data := invoiceTemplateData(org, invoice, "")
	data["PaymentAmount"] = formatCents(payment.AmountCents, invoice.Currency)
	return s.send(to, subject, "receipt", data)
}

func (s *smtpService) send(to, subject, tmplName string, data map[string]interface{}) error {
	tmpl, ok := templates[tmplName]
	if !ok {
		return fmt.Errorf("unknown email template: %s", tmplName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template %s: %w", tmplName, err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.cfg.FromAddress, s.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(msg); err != nil {
		s.metrics.EmailsFailed.WithLabelValues(tmplName).Inc()
		s.log.Error(err, "failed to send email", "template", tmplName, "to", to)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.metrics.EmailsSent.WithLabelValues(tmplName).Inc()
	return nil
}

func invoiceTemplateData(org *model.Organization, invoice *model.Invoice, payURL string) map[string]interface{} {
	data := map[string]interface{}{
		"OrgName":       org.Name,
		"InvoiceNumber": invoice.Number,
		"Total":         formatCents(invoice.TotalCents, invoice.Currency),
		"AmountDue":     formatCents(invoice.AmountDueCents, invoice.Currency),
		"PayURL":        payURL,
	}
	if invoice.DueDate != nil {
		data["DueDate"] = invoice.DueDate.Format("January 2, 2006")
	}
	if org.BrandColor != nil {
		data["BrandColor"] = template.CSS(*org.BrandColor)
	} else {
		data["BrandColor"] = template.CSS("#1a56db")
	}
	return data
}

func formatCents(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, currency)
}
