package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestNextNumber(t *testing.T) {
	tests := []struct {
		name    string
		current string
		prefix  string
		want    string
	}{
		{"first invoice", "", "INV", "INV-000001"},
		{"increments the suffix", "INV-000041", "INV", "INV-000042"},
		{"prefix change keeps the sequence", "INV-000009", "ACME", "ACME-000010"},
		{"unparseable suffix restarts at one", "INV-draft", "INV", "INV-000001"},
		{"width grows past six digits", "INV-999999", "INV", "INV-1000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewInvoiceRepository(NewBaseRepository(db))
			orgID := uuid.New()

			mock.ExpectQuery(`SELECT COALESCE\(MAX\(number\), ''\) FROM invoices`).
				WithArgs(orgID).
				WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(tt.current))

			got, err := repo.NextNumber(context.Background(), orgID, tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCountCreatedSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(NewBaseRepository(db))
	orgID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM invoices`).
		WithArgs(orgID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountCreatedSince(context.Background(), orgID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
