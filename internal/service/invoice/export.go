package invoice

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/model"
)

// csvHeader is the fixed export column set. Order is part of the contract;
// downstream spreadsheets key off it.
const csvHeader = "Invoice Number,Client Name,Client Email,Issue Date,Due Date,Status,Subtotal,Tax,Discount,Total,Amount Paid,Amount Due,Notes\n"

// ExportCSV renders the filtered invoice list as CSV. Amounts are formatted
// as decimal currency units. Only the Notes column is quote-escaped; the
// other fields cannot contain commas or quotes.
func (s *Service) ExportCSV(ctx context.Context, orgID uuid.UUID, filter *model.InvoiceFilter) ([]byte, error) {
	invoices, err := s.repo.ListAll(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(csvHeader)
	for _, inv := range invoices {
		buf.WriteString(csvRow(inv))
	}
	return buf.Bytes(), nil
}

func csvRow(inv *model.Invoice) string {
	clientName, clientEmail := "", ""
	if inv.ClientName != nil {
		clientName = *inv.ClientName
	}
	if inv.ClientEmail != nil {
		clientEmail = *inv.ClientEmail
	}
	dueDate := ""
	if inv.DueDate != nil {
		dueDate = inv.DueDate.Format("2006-01-02")
	}
	notes := ""
	if inv.Notes != nil {
		notes = *inv.Notes
	}

	return fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
		inv.Number,
		clientName,
		clientEmail,
		inv.IssueDate.Format("2006-01-02"),
		dueDate,
		inv.Status,
		formatCents(inv.SubtotalCents),
		formatCents(inv.TaxTotalCents),
		formatCents(inv.DiscountTotalCents),
		formatCents(inv.TotalCents),
		formatCents(inv.AmountPaidCents),
		formatCents(inv.AmountDueCents),
		quoteCSV(notes),
	)
}

func quoteCSV(s string) string {
	if s == "" {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
