package invoice

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bildout/bildout-api/internal/model"
)

func TestExportCSVHeader(t *testing.T) {
	f := newFixture(t, nil)

	data, err := f.svc.ExportCSV(context.Background(), f.orgID, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t,
		"Invoice Number,Client Name,Client Email,Issue Date,Due Date,Status,Subtotal,Tax,Discount,Total,Amount Paid,Amount Due,Notes",
		lines[0])
	assert.Len(t, lines, 1)
}

func TestExportCSVRows(t *testing.T) {
	f := newFixture(t, nil)
	issue := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)

	f.repo.all = []*model.Invoice{
		{
			Number:             "INV-000001",
			ClientName:         strPtr("Globex"),
			ClientEmail:        strPtr("billing@globex.test"),
			IssueDate:          issue,
			DueDate:            &due,
			Status:             model.InvoiceStatusSent,
			SubtotalCents:      150000,
			TaxTotalCents:      30000,
			DiscountTotalCents: 5000,
			TotalCents:         175000,
			AmountPaidCents:    0,
			AmountDueCents:     175000,
		},
		{
			Number:    "INV-000002",
			IssueDate: issue,
			Status:    model.InvoiceStatusDraft,
			Notes:     strPtr(`rush job, quote "final"`),
		},
	}

	data, err := f.svc.ExportCSV(context.Background(), f.orgID, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t,
		"INV-000001,Globex,billing@globex.test,2026-03-15,2026-04-14,sent,1500.00,300.00,50.00,1750.00,0.00,1750.00,",
		lines[1])
	// Only the Notes column is quoted; inner quotes double up.
	assert.Equal(t,
		`INV-000002,,,2026-03-15,,draft,0.00,0.00,0.00,0.00,0.00,0.00,"rush job, quote ""final"""`,
		lines[2])
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", formatCents(0))
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "12.34", formatCents(1234))
	assert.Equal(t, "-3.21", formatCents(-321))
}
