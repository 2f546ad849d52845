package interfaces

import (
	"context"

	"github.com/accounting-data/ar-aging/internal/models"
)

// AgingStore is the canonical relational store the load engine writes to.
// Scope selects the staging area for a batch: empty for the daily incremental
// run, or a partition key so concurrent bucket backfills never share staging
// state. Every method is atomic per call; a store error means nothing from
// that batch was persisted.
type AgingStore interface {
	// UpsertCustomers inserts or updates customers keyed by id. The update
	// branch only overwrites identity fields that still hold the placeholder
	// sentinels, so enriched data is never clobbered by a later feed.
	UpsertCustomers(ctx context.Context, customers []models.Customer) error

	// LoadInvoiceBatch stages the rows, repairs missing customer references
	// with placeholder rows, and upserts into the canonical invoice table
	// keyed by invoice id. An empty batch is a no-op.
	LoadInvoiceBatch(ctx context.Context, scope string, rows []models.InvoiceAging) error

	// LoadPaymentBatch replaces the scope's payments table with the batch.
	LoadPaymentBatch(ctx context.Context, scope string, rows []models.Payment) error
}
