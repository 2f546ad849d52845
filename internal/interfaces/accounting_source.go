package interfaces

import (
	"context"
	"time"

	"github.com/accounting-data/ar-aging/internal/models"
)

// SourceQuery scopes an extraction call. The due-date window is the
// approximate partition pre-filter; the updated window drives incremental
// runs. Nil bounds mean unbounded.
type SourceQuery struct {
	Limit       int
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
}

// AccountingSource fetches decoded records from the upstream accounting API.
// Implementations do not retry; transient errors surface to the driver.
type AccountingSource interface {
	GetCustomers(ctx context.Context, q SourceQuery) ([]models.CustomerRaw, error)
	GetInvoices(ctx context.Context, q SourceQuery) ([]models.InvoiceRaw, error)
	GetPayments(ctx context.Context, q SourceQuery) ([]models.PaymentRaw, error)
}
