// Package postgres implements the load engine against a relational store:
// scoped staging, referential repair, and the idempotent upserts into the
// canonical customers/invoices/payments tables.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/accounting-data/ar-aging/internal/interfaces"
	"github.com/accounting-data/ar-aging/internal/models"
)

const (
	invoicesTable        = "invoices"
	invoicesStagingTable = "invoices_staging"
	paymentsTable        = "payments"
)

// Store writes reconciled batches to Postgres. It holds no state beyond the
// handle it is given; transaction lifecycle is per call, connection lifecycle
// is the caller's.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// upsertCustomerSQL updates identity fields only while the stored row still
// carries the placeholder sentinels; a customer with a real name is never
// overwritten by this path.
const upsertCustomerSQL = `
	INSERT INTO customers (id, name, company_name, is_active, is_supplier, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		company_name = EXCLUDED.company_name,
		is_active = EXCLUDED.is_active,
		is_supplier = EXCLUDED.is_supplier,
		updated_at = NOW()
	WHERE customers.name = $6
	   OR customers.company_name = $7`

// UpsertCustomers writes a customer batch in one transaction.
func (s *Store) UpsertCustomers(ctx context.Context, customers []models.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin customer upsert: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, c := range customers {
		if _, parseErr := uuid.Parse(c.ID); parseErr != nil {
			err = fmt.Errorf("postgres: invalid customer id %q: %w", c.ID, parseErr)
			return err
		}
		_, err = tx.ExecContext(ctx, upsertCustomerSQL,
			c.ID, c.Name, c.CompanyName, c.IsActive, c.IsSupplier,
			models.UnknownCustomerName, models.UnknownCompanyName,
		)
		if err != nil {
			err = fmt.Errorf("postgres: upsert customer %s: %w", c.ID, err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit customer upsert: %w", err)
	}
	return nil
}

// LoadInvoiceBatch stages the batch in a scope-specific table, inserts
// placeholder customers for unknown references, and upserts into the
// canonical invoice table, all inside one transaction. On conflict only
// customer_id, invoice_number, invoice_at, due_at, currency, days_overdue,
// aging_bucket and updated_at are refreshed; the remaining business columns
// and created_at are written on insert only.
func (s *Store) LoadInvoiceBatch(ctx context.Context, scope string, rows []models.InvoiceAging) error {
	if len(rows) == 0 {
		return nil
	}

	staging, err := stagingTableName(scope)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin invoice load: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.stageInvoices(ctx, tx, staging, rows); err != nil {
		return err
	}

	if err = s.ensureCustomers(ctx, tx, referencedCustomerIDs(rows)); err != nil {
		return err
	}

	upsertSQL := fmt.Sprintf(`
		INSERT INTO %s (
			invoice_id, customer_id, invoice_number, currency,
			total_amount, total_paid, balance_amount, tax_amount, paid_amount,
			invoice_at, due_at, posted_at, days_overdue, aging_bucket,
			status, type, notes, created_at, updated_at
		)
		SELECT
			invoice_id, customer_id, invoice_number, currency,
			total_amount, total_paid, balance_amount, tax_amount, paid_amount,
			invoice_at, due_at, posted_at, days_overdue, aging_bucket,
			status, type, notes, NOW(), NOW()
		FROM %s
		ON CONFLICT (invoice_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			invoice_number = EXCLUDED.invoice_number,
			invoice_at = EXCLUDED.invoice_at,
			due_at = EXCLUDED.due_at,
			currency = EXCLUDED.currency,
			days_overdue = EXCLUDED.days_overdue,
			aging_bucket = EXCLUDED.aging_bucket,
			updated_at = NOW()`, invoicesTable, staging)

	if _, err = tx.ExecContext(ctx, upsertSQL); err != nil {
		err = fmt.Errorf("postgres: upsert invoices from %s: %w", staging, err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit invoice load: %w", err)
	}
	return nil
}

// stageInvoices replaces the scope's staging table and fills it with the batch.
func (s *Store) stageInvoices(ctx context.Context, tx *sql.Tx, staging string, rows []models.InvoiceAging) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", staging)); err != nil {
		return fmt.Errorf("postgres: drop staging table %s: %w", staging, err)
	}

	createSQL := fmt.Sprintf(`
		CREATE TABLE %s (
			invoice_id uuid NOT NULL,
			customer_id uuid,
			invoice_number text,
			currency text,
			total_amount numeric(18,2) NOT NULL,
			total_paid numeric(18,2) NOT NULL,
			balance_amount numeric(18,2) NOT NULL,
			tax_amount numeric(18,2) NOT NULL,
			paid_amount numeric(18,2) NOT NULL,
			invoice_at timestamptz,
			due_at timestamptz,
			posted_at timestamptz,
			days_overdue integer NOT NULL,
			aging_bucket integer NOT NULL,
			status text,
			type text,
			notes text
		)`, staging)
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("postgres: create staging table %s: %w", staging, err)
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (
			invoice_id, customer_id, invoice_number, currency,
			total_amount, total_paid, balance_amount, tax_amount, paid_amount,
			invoice_at, due_at, posted_at, days_overdue, aging_bucket,
			status, type, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`, staging)

	for _, row := range rows {
		_, err := tx.ExecContext(ctx, insertSQL,
			row.InvoiceID, row.CustomerID, row.InvoiceNumber, row.Currency,
			row.TotalAmount, row.TotalPaid, row.BalanceAmount, row.TaxAmount, row.PaidAmount,
			row.InvoiceAt, row.DueAt, row.PostedAt, row.DaysOverdue, row.AgingBucket,
			string(row.Status), string(row.Type), row.Notes,
		)
		if err != nil {
			return fmt.Errorf("postgres: stage invoice %s: %w", row.InvoiceID, err)
		}
	}
	return nil
}

// ensureCustomers inserts a placeholder row for every referenced customer id
// the store has never seen, so the invoice upsert cannot violate the foreign
// key. Existing ids are untouched.
func (s *Store) ensureCustomers(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("postgres: invalid customer id %q on invoice: %w", id, err)
		}
	}

	rows, err := tx.QueryContext(ctx, "SELECT id FROM customers WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("postgres: query existing customers: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("postgres: scan customer id: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: iterate existing customers: %w", err)
	}

	const placeholderSQL = `
		INSERT INTO customers (id, name, company_name, is_active, is_supplier, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, FALSE, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING`

	for _, id := range ids {
		if _, ok := existing[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, placeholderSQL, id, models.UnknownCustomerName, models.UnknownCompanyName); err != nil {
			return fmt.Errorf("postgres: insert placeholder customer %s: %w", id, err)
		}
	}
	return nil
}

// LoadPaymentBatch replaces the scope's payments table with the batch in one
// transaction. Payments carry no upsert semantics; a full replace per run is
// the contract.
func (s *Store) LoadPaymentBatch(ctx context.Context, scope string, rows []models.Payment) error {
	if len(rows) == 0 {
		return nil
	}

	table, err := paymentsTableName(scope)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin payment load: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		err = fmt.Errorf("postgres: drop payments table %s: %w", table, err)
		return err
	}

	createSQL := fmt.Sprintf(`
		CREATE TABLE %s (
			payment_id text NOT NULL,
			customer_id uuid,
			invoice_id text,
			total_amount numeric(18,2) NOT NULL,
			currency text
		)`, table)
	if _, err = tx.ExecContext(ctx, createSQL); err != nil {
		err = fmt.Errorf("postgres: create payments table %s: %w", table, err)
		return err
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (payment_id, customer_id, invoice_id, total_amount, currency)
		VALUES ($1, $2, $3, $4, $5)`, table)
	for _, p := range rows {
		if _, err = tx.ExecContext(ctx, insertSQL, p.PaymentID, p.CustomerID, p.InvoiceID, p.TotalAmount, p.Currency); err != nil {
			err = fmt.Errorf("postgres: insert payment %s: %w", p.PaymentID, err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit payment load: %w", err)
	}
	return nil
}

// stagingTableName derives the scope's staging table. Scopes are restricted
// to the closed partition key space so a scope can never smuggle SQL into an
// identifier position.
func stagingTableName(scope string) (string, error) {
	if scope == "" {
		return invoicesStagingTable, nil
	}
	if err := validateScope(scope); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_bucket_%s", invoicesStagingTable, scope), nil
}

func paymentsTableName(scope string) (string, error) {
	if scope == "" {
		return paymentsTable, nil
	}
	if err := validateScope(scope); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_bucket_%s", paymentsTable, scope), nil
}

func validateScope(scope string) error {
	for _, r := range scope {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return fmt.Errorf("postgres: invalid scope %q", scope)
		}
	}
	return nil
}

// referencedCustomerIDs collects the distinct non-null customer ids in a batch.
func referencedCustomerIDs(rows []models.InvoiceAging) []string {
	seen := make(map[string]struct{}, len(rows))
	var ids []string
	for _, row := range rows {
		if row.CustomerID == nil || *row.CustomerID == "" {
			continue
		}
		if _, ok := seen[*row.CustomerID]; ok {
			continue
		}
		seen[*row.CustomerID] = struct{}{}
		ids = append(ids, *row.CustomerID)
	}
	return ids
}

var _ interfaces.AgingStore = (*Store)(nil)
