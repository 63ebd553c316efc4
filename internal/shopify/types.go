package shopify

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a typed Shopify order as consumed by the sync engine. It is
// parsed once at the fetch boundary; downstream code never touches raw
// JSON. Orders are ephemeral: fetched fresh each run, never persisted.
type Order struct {
	ID          string // remote identifier (numeric, but opaque to us)
	OrderNumber int64  // dense upstream-assigned ordinal
	CreatedAt   time.Time
	UpdatedAt   time.Time

	TotalPrice    decimal.Decimal
	SubtotalPrice decimal.Decimal
	TotalTax      decimal.Decimal

	FinancialStatus   string
	FulfillmentStatus string
	ContactEmail      string
	Phone             string
	Tags              string

	Customer        Customer
	BillingAddress  Address
	ShippingAddress Address

	NoteAttributes []Attribute
	LineItems      []LineItem
}

// Customer holds the customer fields that participate in the header
// fingerprint and the destination rows.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
}

// Address is a postal address attached to an order.
type Address struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	Province string
	Zip      string
	Country  string
	Phone    string
}

// Attribute is a name/value pair from order note_attributes or line item
// properties.
type Attribute struct {
	Name  string
	Value string
}

// LineItem is one purchased item on an order.
type LineItem struct {
	ID           int64
	ProductID    int64
	VariantID    int64
	Title        string
	VariantTitle string
	Quantity     int
	Price        decimal.Decimal
	Properties   []Attribute
}

// Property returns the value of the named line item property, or "" if absent.
func (li *LineItem) Property(name string) string {
	for _, p := range li.Properties {
		if p.Name == name {
			return p.Value
		}
	}

	return ""
}

// NoteAttribute returns the value of the named note attribute, or "" if absent.
func (o *Order) NoteAttribute(name string) string {
	for _, a := range o.NoteAttributes {
		if a.Name == name {
			return a.Value
		}
	}

	return ""
}

// ParseError reports an order payload that failed boundary validation.
// Fetch fails fast on these instead of letting missing fields propagate
// into the transform.
type ParseError struct {
	OrderID string
	Field   string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("shopify: parsing order %q: field %s: %s", e.OrderID, e.Field, e.Reason)
}
