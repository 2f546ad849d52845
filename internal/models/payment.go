package models

import "github.com/shopspring/decimal"

// PaymentRaw is a payment record as decoded from the unified accounting API.
type PaymentRaw struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	ContactID   *string         `json:"contact_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

// Payment is a row in the canonical payments table.
type Payment struct {
	PaymentID   string
	CustomerID  *string
	InvoiceID   string
	TotalAmount decimal.Decimal
	Currency    string
}
