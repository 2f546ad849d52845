package events

import "time"

// RunCompleted is published after a reconciliation unit commits, one event
// per scope (the daily window or a single aging-bucket partition).
type RunCompleted struct {
	RunID      string    `json:"run_id"`
	Scope      string    `json:"scope"`
	Customers  int       `json:"customer_count"`
	Invoices   int       `json:"invoice_count"`
	Payments   int       `json:"payment_count"`
	OccurredAt time.Time `json:"occurred_at"`
}
