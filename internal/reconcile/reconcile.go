// Package reconcile is the pure transform at the heart of the pipeline: it
// merges payment totals into invoices and derives the balance, days-overdue
// and aging-bucket fields. It performs no I/O; the load engine persists its
// output verbatim.
package reconcile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/accounting-data/ar-aging/internal/aging"
	"github.com/accounting-data/ar-aging/internal/models"
)

// Reconcile merges payments into invoices and computes the AR aging rows.
//
// Payments are summed per invoice identifier; a payment referencing an invoice
// not in the batch is dropped rather than creating a phantom row. Every
// invoice is kept regardless of payment presence (left join), with a missing
// payment total defaulting to zero. now is fixed by the caller once per batch
// so every row shares the same reference instant.
//
// An empty invoice batch yields an empty result, not an error.
func Reconcile(invoices []models.InvoiceRaw, payments []models.PaymentRaw, now time.Time) []models.InvoiceAging {
	if len(invoices) == 0 {
		return nil
	}

	paidByInvoice := sumPaymentsByInvoice(payments)

	rows := make([]models.InvoiceAging, 0, len(invoices))
	for _, inv := range invoices {
		totalPaid := paidByInvoice[inv.ID] // zero decimal when absent

		dueAt := parseTimestamp(inv.DueAt)
		days := daysOverdue(now, dueAt)

		rows = append(rows, models.InvoiceAging{
			InvoiceID:     inv.ID,
			CustomerID:    inv.ContactID,
			InvoiceNumber: inv.InvoiceNumber,
			Currency:      inv.Currency,
			TotalAmount:   inv.TotalAmount,
			TotalPaid:     totalPaid,
			BalanceAmount: inv.TotalAmount.Sub(totalPaid),
			TaxAmount:     inv.TaxAmount,
			PaidAmount:    inv.PaidAmount,
			InvoiceAt:     parseTimestamp(inv.InvoiceAt),
			DueAt:         dueAt,
			PostedAt:      parseTimestamp(inv.PostedAt),
			DaysOverdue:   days,
			AgingBucket:   int(aging.Categorize(days)),
			Status:        models.ParseInvoiceStatus(inv.Status),
			Type:          models.ParseInvoiceType(inv.Type),
			Notes:         inv.Notes,
		})
	}
	return rows
}

// ReconcilePartition reconciles and then keeps only the rows whose recomputed
// days-overdue falls inside the partition's exact day range. This filter is
// authoritative; the due-date window used at fetch time is only approximate,
// so rows that slipped in through the window are dropped here.
func ReconcilePartition(invoices []models.InvoiceRaw, payments []models.PaymentRaw, now time.Time, partitionKey string) ([]models.InvoiceAging, error) {
	minDays, maxDays, ok := aging.DayRange(partitionKey)
	if !ok {
		return nil, fmt.Errorf("reconcile: unknown partition key %q", partitionKey)
	}

	rows := Reconcile(invoices, payments, now)

	kept := rows[:0]
	for _, row := range rows {
		if row.DaysOverdue < minDays {
			continue
		}
		if maxDays != nil && row.DaysOverdue > *maxDays {
			continue
		}
		kept = append(kept, row)
	}
	return kept, nil
}

// TransformPayments maps raw payments to the canonical payments shape,
// renaming id to payment_id and contact_id to customer_id.
func TransformPayments(payments []models.PaymentRaw) []models.Payment {
	if len(payments) == 0 {
		return nil
	}
	out := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, models.Payment{
			PaymentID:   p.ID,
			CustomerID:  p.ContactID,
			InvoiceID:   p.InvoiceID,
			TotalAmount: p.TotalAmount,
			Currency:    p.Currency,
		})
	}
	return out
}

func sumPaymentsByInvoice(payments []models.PaymentRaw) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal, len(payments))
	for _, p := range payments {
		if p.InvoiceID == "" {
			continue
		}
		sums[p.InvoiceID] = sums[p.InvoiceID].Add(p.TotalAmount)
	}
	return sums
}

// timestampLayouts are tried in order; upstream sends RFC 3339 but bare dates
// show up in older records.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// parseTimestamp decodes an upstream timestamp, degrading to nil on any value
// it cannot parse. A bad timestamp never fails the row.
func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// daysOverdue is the whole days elapsed since the due date, clamped at zero.
// A missing due date counts as not overdue.
func daysOverdue(now time.Time, dueAt *time.Time) int {
	if dueAt == nil {
		return 0
	}
	days := int(now.Sub(*dueAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
