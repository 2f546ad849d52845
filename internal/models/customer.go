package models

import "time"

// Sentinel identity values written by referential repair when an invoice
// references a customer the store has never seen. A customer carrying one of
// these is eligible for enrichment by a later authoritative feed; a customer
// with a real name is not.
const (
	UnknownCustomerName = "[Unknown Customer]"
	UnknownCompanyName  = "[Unknown Company]"
)

// CustomerRaw is a customer record as decoded from the unified accounting API.
// Optional fields are pointers so that "absent" and "zero" stay distinct.
type CustomerRaw struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CompanyName *string `json:"company_name"`
	IsActive    *bool   `json:"is_active"`
	IsSupplier  *bool   `json:"is_supplier"`
}

// Customer is a row in the canonical customers table.
type Customer struct {
	ID          string
	Name        string
	CompanyName string
	IsActive    bool
	IsSupplier  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Normalize applies the load-boundary defaults: a missing supplier flag means
// false, a missing active flag means true, a missing company name is empty.
func (r CustomerRaw) Normalize() Customer {
	c := Customer{
		ID:       r.ID,
		Name:     r.Name,
		IsActive: true,
	}
	if r.CompanyName != nil {
		c.CompanyName = *r.CompanyName
	}
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
	if r.IsSupplier != nil {
		c.IsSupplier = *r.IsSupplier
	}
	return c
}

// PlaceholderCustomer builds the sentinel row referential repair inserts for
// an identifier whose existence is inferred from an invoice.
func PlaceholderCustomer(id string, now time.Time) Customer {
	return Customer{
		ID:          id,
		Name:        UnknownCustomerName,
		CompanyName: UnknownCompanyName,
		IsActive:    true,
		IsSupplier:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsPlaceholder reports whether the customer still carries sentinel identity
// and may therefore be overwritten by a later customer feed.
func (c Customer) IsPlaceholder() bool {
	return c.Name == UnknownCustomerName || c.CompanyName == UnknownCompanyName
}
