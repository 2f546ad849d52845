package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the closed set of invoice statuses the canonical store
// accepts. Incoming values outside the set map to InvoiceStatusUnrecognized
// rather than being stored as free text.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSubmitted     InvoiceStatus = "SUBMITTED"
	InvoiceStatusAuthorized    InvoiceStatus = "AUTHORIZED"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusVoid          InvoiceStatus = "VOID"
	InvoiceStatusUnrecognized  InvoiceStatus = "UNRECOGNIZED"
)

// ParseInvoiceStatus maps a raw status string onto the closed status set.
func ParseInvoiceStatus(s string) InvoiceStatus {
	switch InvoiceStatus(s) {
	case InvoiceStatusDraft, InvoiceStatusSubmitted, InvoiceStatusAuthorized,
		InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusVoid:
		return InvoiceStatus(s)
	default:
		return InvoiceStatusUnrecognized
	}
}

// InvoiceType distinguishes receivable from payable documents.
type InvoiceType string

const (
	InvoiceTypeAccountsReceivable InvoiceType = "ACCOUNTS_RECEIVABLE"
	InvoiceTypeAccountsPayable    InvoiceType = "ACCOUNTS_PAYABLE"
	InvoiceTypeUnrecognized       InvoiceType = "UNRECOGNIZED"
)

// ParseInvoiceType maps a raw type string onto the closed type set.
func ParseInvoiceType(s string) InvoiceType {
	switch InvoiceType(s) {
	case InvoiceTypeAccountsReceivable, InvoiceTypeAccountsPayable:
		return InvoiceType(s)
	default:
		return InvoiceTypeUnrecognized
	}
}

// InvoiceRaw is an invoice record as decoded from the unified accounting API.
// Timestamps arrive as ISO 8601 strings; parsing happens in the transformer
// where a bad value degrades to null instead of failing the row.
type InvoiceRaw struct {
	ID            string          `json:"id"`
	ContactID     *string         `json:"contact_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	InvoiceAt     *string         `json:"invoice_at"`
	DueAt         *string         `json:"due_at"`
	PostedAt      *string         `json:"posted_at"`
	Status        string          `json:"status"`
	Type          string          `json:"type"`
	Notes         string          `json:"notes"`
}

// InvoiceAging is one reconciled row of the AR aging dataset, the shape the
// load engine persists. BalanceAmount, DaysOverdue and AgingBucket are derived
// by the transformer and are never recomputed downstream.
type InvoiceAging struct {
	InvoiceID     string
	CustomerID    *string
	InvoiceNumber string
	Currency      string
	TotalAmount   decimal.Decimal
	TotalPaid     decimal.Decimal
	BalanceAmount decimal.Decimal
	TaxAmount     decimal.Decimal
	PaidAmount    decimal.Decimal
	InvoiceAt     *time.Time
	DueAt         *time.Time
	PostedAt      *time.Time
	DaysOverdue   int
	AgingBucket   int
	Status        InvoiceStatus
	Type          InvoiceType
	Notes         string
}
