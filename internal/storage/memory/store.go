// Package memory is an in-memory AgingStore with the same guard and repair
// semantics as the Postgres engine. It backs local development and the
// pipeline tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/accounting-data/ar-aging/internal/interfaces"
	"github.com/accounting-data/ar-aging/internal/models"
)

// StoredInvoice is a canonical invoice row plus the bookkeeping timestamps
// the relational store would maintain.
type StoredInvoice struct {
	models.InvoiceAging
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store keeps canonical state in maps keyed the same way the relational
// schema is keyed. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	customers map[string]models.Customer
	invoices  map[string]StoredInvoice
	payments  map[string][]models.Payment // keyed by scope

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		customers: make(map[string]models.Customer),
		invoices:  make(map[string]StoredInvoice),
		payments:  make(map[string][]models.Payment),
		now:       time.Now,
	}
}

// SetClock overrides the store's clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// UpsertCustomers mirrors the guarded SQL upsert: inserts are unconditional,
// updates only land while the stored row still carries placeholder identity.
func (s *Store) UpsertCustomers(ctx context.Context, customers []models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, c := range customers {
		stored, ok := s.customers[c.ID]
		if !ok {
			c.CreatedAt = now
			c.UpdatedAt = now
			s.customers[c.ID] = c
			continue
		}
		if !stored.IsPlaceholder() {
			continue // guard: enriched identity is never overwritten here
		}
		stored.Name = c.Name
		stored.CompanyName = c.CompanyName
		stored.IsActive = c.IsActive
		stored.IsSupplier = c.IsSupplier
		stored.UpdatedAt = now
		s.customers[c.ID] = stored
	}
	return nil
}

// LoadInvoiceBatch repairs missing customer references and upserts the batch,
// refreshing only the conflict column set on existing rows.
func (s *Store) LoadInvoiceBatch(ctx context.Context, scope string, rows []models.InvoiceAging) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, row := range rows {
		if row.CustomerID != nil && *row.CustomerID != "" {
			if _, ok := s.customers[*row.CustomerID]; !ok {
				s.customers[*row.CustomerID] = models.PlaceholderCustomer(*row.CustomerID, now)
			}
		}
	}

	for _, row := range rows {
		stored, ok := s.invoices[row.InvoiceID]
		if !ok {
			s.invoices[row.InvoiceID] = StoredInvoice{InvoiceAging: row, CreatedAt: now, UpdatedAt: now}
			continue
		}
		stored.CustomerID = row.CustomerID
		stored.InvoiceNumber = row.InvoiceNumber
		stored.InvoiceAt = row.InvoiceAt
		stored.DueAt = row.DueAt
		stored.Currency = row.Currency
		stored.DaysOverdue = row.DaysOverdue
		stored.AgingBucket = row.AgingBucket
		stored.UpdatedAt = now
		s.invoices[row.InvoiceID] = stored
	}
	return nil
}

// LoadPaymentBatch replaces the scope's payment set.
func (s *Store) LoadPaymentBatch(ctx context.Context, scope string, rows []models.Payment) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := make([]models.Payment, len(rows))
	copy(replaced, rows)
	s.payments[scope] = replaced
	return nil
}

// Customers returns a snapshot of the customer table.
func (s *Store) Customers() map[string]models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.Customer, len(s.customers))
	for id, c := range s.customers {
		out[id] = c
	}
	return out
}

// Invoices returns a snapshot of the canonical invoice table.
func (s *Store) Invoices() map[string]StoredInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]StoredInvoice, len(s.invoices))
	for id, inv := range s.invoices {
		out[id] = inv
	}
	return out
}

// Payments returns a snapshot of one scope's payments.
func (s *Store) Payments(scope string) []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Payment, len(s.payments[scope]))
	copy(out, s.payments[scope])
	return out
}

var _ interfaces.AgingStore = (*Store)(nil)
