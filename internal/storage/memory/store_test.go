package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accounting-data/ar-aging/internal/models"
)

func strPtr(s string) *string { return &s }

func agingRow(invoiceID, customerID string, total int64) models.InvoiceAging {
	row := models.InvoiceAging{
		InvoiceID:     invoiceID,
		Currency:      "USD",
		TotalAmount:   decimal.NewFromInt(total),
		BalanceAmount: decimal.NewFromInt(total),
	}
	if customerID != "" {
		row.CustomerID = strPtr(customerID)
	}
	return row
}

func TestLoadInvoiceBatchEmptyIsNoOp(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.LoadInvoiceBatch(context.Background(), "", nil))
	assert.Empty(t, s.Invoices())
	assert.Empty(t, s.Customers())
}

func TestLoadInvoiceBatchIdempotent(t *testing.T) {
	s := NewStore()
	clock := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return clock })

	batch := []models.InvoiceAging{agingRow("I1", "C1", 100)}
	require.NoError(t, s.LoadInvoiceBatch(context.Background(), "", batch))

	first := s.Invoices()["I1"]

	clock = clock.Add(time.Hour)
	require.NoError(t, s.LoadInvoiceBatch(context.Background(), "", batch))

	invoices := s.Invoices()
	require.Len(t, invoices, 1)

	second := invoices["I1"]
	assert.True(t, second.TotalAmount.Equal(first.TotalAmount))
	assert.True(t, second.BalanceAmount.Equal(first.BalanceAmount))
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestLoadInvoiceBatchConflictRefreshesOnlyAgingColumns(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.LoadInvoiceBatch(ctx, "", []models.InvoiceAging{{
		InvoiceID:     "I1",
		TotalAmount:   decimal.NewFromInt(100),
		BalanceAmount: decimal.NewFromInt(100),
		DaysOverdue:   10,
		AgingBucket:   1,
		Notes:         "original notes",
	}}))

	require.NoError(t, s.LoadInvoiceBatch(ctx, "", []models.InvoiceAging{{
		InvoiceID:     "I1",
		TotalAmount:   decimal.NewFromInt(999), // insert-only column, must not move
		BalanceAmount: decimal.NewFromInt(999),
		DaysOverdue:   40,
		AgingBucket:   2,
		Notes:         "replacement notes",
	}}))

	stored := s.Invoices()["I1"]
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "original notes", stored.Notes)
	assert.Equal(t, 40, stored.DaysOverdue)
	assert.Equal(t, 2, stored.AgingBucket)
}

func TestReferentialRepairAndGuard(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	// Invoice referencing an unknown customer creates a placeholder.
	require.NoError(t, s.LoadInvoiceBatch(ctx, "", []models.InvoiceAging{agingRow("I1", "X", 100)}))
	placeholder := s.Customers()["X"]
	assert.Equal(t, models.UnknownCustomerName, placeholder.Name)
	assert.Equal(t, models.UnknownCompanyName, placeholder.CompanyName)
	assert.True(t, placeholder.IsActive)
	assert.False(t, placeholder.IsSupplier)

	// Authoritative feed enriches the placeholder.
	require.NoError(t, s.UpsertCustomers(ctx, []models.Customer{{ID: "X", Name: "Acme Co"}}))
	assert.Equal(t, "Acme Co", s.Customers()["X"].Name)

	// A later feed with a different real name must not clobber it.
	require.NoError(t, s.UpsertCustomers(ctx, []models.Customer{{ID: "X", Name: "Acme Corp"}}))
	assert.Equal(t, "Acme Co", s.Customers()["X"].Name)
}

func TestRepairSkipsKnownCustomers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertCustomers(ctx, []models.Customer{{ID: "C1", Name: "Real Name"}}))
	require.NoError(t, s.LoadInvoiceBatch(ctx, "", []models.InvoiceAging{agingRow("I1", "C1", 100)}))

	assert.Equal(t, "Real Name", s.Customers()["C1"].Name)
}

func TestLoadPaymentBatchReplacesScope(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := []models.Payment{{PaymentID: "P1", InvoiceID: "I1", TotalAmount: decimal.NewFromInt(10)}}
	second := []models.Payment{{PaymentID: "P2", InvoiceID: "I2", TotalAmount: decimal.NewFromInt(20)}}

	require.NoError(t, s.LoadPaymentBatch(ctx, "3", first))
	require.NoError(t, s.LoadPaymentBatch(ctx, "3", second))
	require.NoError(t, s.LoadPaymentBatch(ctx, "", first))

	bucket := s.Payments("3")
	require.Len(t, bucket, 1)
	assert.Equal(t, "P2", bucket[0].PaymentID)

	// Scopes do not share state.
	daily := s.Payments("")
	require.Len(t, daily, 1)
	assert.Equal(t, "P1", daily[0].PaymentID)
}
