package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ListParams parameterize a paged order listing.
type ListParams struct {
	Since  time.Time // created_at_min filter
	Limit  int       // page size
	Status string    // e.g. "any"
}

// Page is one page of orders plus the continuation link for the next page.
// An empty NextURL means the listing is exhausted.
type Page struct {
	Orders  []Order
	NextURL string
}

// --- Wire types ---
// These mirror the Admin REST JSON. Unexported; callers receive parsed
// Order values. Money fields arrive as JSON strings; decimal handles both
// quoted and bare numbers.

type ordersEnvelope struct {
	Orders []orderWire `json:"orders"`
}

type orderWire struct {
	ID                int64           `json:"id"`
	OrderNumber       int64           `json:"order_number"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	SubtotalPrice     decimal.Decimal `json:"subtotal_price"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	ContactEmail      string          `json:"contact_email"`
	Phone             string          `json:"phone"`
	Tags              string          `json:"tags"`
	Customer          customerWire    `json:"customer"`
	BillingAddress    addressWire     `json:"billing_address"`
	ShippingAddress   addressWire     `json:"shipping_address"`
	NoteAttributes    []attributeWire `json:"note_attributes"`
	LineItems         []lineItemWire  `json:"line_items"`
}

type customerWire struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type addressWire struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

type attributeWire struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type lineItemWire struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	VariantID    int64           `json:"variant_id"`
	Title        string          `json:"title"`
	VariantTitle string          `json:"variant_title"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Properties   []attributeWire `json:"properties"`
}

// toOrder validates a wire order and converts it to the typed form.
// Boundary validation fails fast with a ParseError instead of letting a
// zero ordinal or missing ID surface deep in the transform.
func (w *orderWire) toOrder() (Order, error) {
	id := strconv.FormatInt(w.ID, 10)

	if w.ID == 0 {
		return Order{}, &ParseError{OrderID: id, Field: "id", Reason: "missing"}
	}

	if w.OrderNumber <= 0 {
		return Order{}, &ParseError{OrderID: id, Field: "order_number", Reason: "missing or non-positive"}
	}

	if w.CreatedAt.IsZero() {
		return Order{}, &ParseError{OrderID: id, Field: "created_at", Reason: "missing"}
	}

	o := Order{
		ID:                id,
		OrderNumber:       w.OrderNumber,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
		TotalPrice:        w.TotalPrice,
		SubtotalPrice:     w.SubtotalPrice,
		TotalTax:          w.TotalTax,
		FinancialStatus:   w.FinancialStatus,
		FulfillmentStatus: w.FulfillmentStatus,
		ContactEmail:      w.ContactEmail,
		Phone:             w.Phone,
		Tags:              w.Tags,
		Customer:          Customer(w.Customer),
		BillingAddress:    Address(w.BillingAddress),
		ShippingAddress:   Address(w.ShippingAddress),
	}

	for _, a := range w.NoteAttributes {
		o.NoteAttributes = append(o.NoteAttributes, Attribute(a))
	}

	for _, li := range w.LineItems {
		item := LineItem{
			ID:           li.ID,
			ProductID:    li.ProductID,
			VariantID:    li.VariantID,
			Title:        li.Title,
			VariantTitle: li.VariantTitle,
			Quantity:     li.Quantity,
			Price:        li.Price,
		}
		for _, p := range li.Properties {
			item.Properties = append(item.Properties, Attribute(p))
		}

		o.LineItems = append(o.LineItems, item)
	}

	return o, nil
}

// ListOrders fetches one page of orders. For the first page, pass an empty
// pageURL and the listing params; for subsequent pages, pass the NextURL
// from the previous Page (params are already baked into the link).
func (c *Client) ListOrders(ctx context.Context, params ListParams, pageURL string) (*Page, error) {
	target := pageURL
	if target == "" {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(params.Limit))

		if params.Status != "" {
			q.Set("status", params.Status)
		}

		if !params.Since.IsZero() {
			q.Set("created_at_min", params.Since.UTC().Format(time.RFC3339))
		}

		target = "/orders.json?" + q.Encode()
	}

	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env ordersEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("shopify: decoding orders response: %w", err)
	}

	orders := make([]Order, 0, len(env.Orders))

	for i := range env.Orders {
		o, err := env.Orders[i].toOrder()
		if err != nil {
			return nil, err
		}

		orders = append(orders, o)
	}

	next := nextPageLink(resp.Header.Get("Link"))

	c.logger.Debug("fetched order page",
		slog.Int("count", len(orders)),
		slog.Bool("has_next", next != ""),
	)

	return &Page{Orders: orders, NextURL: next}, nil
}

// GetOrderByNumber point-fetches a single order by its order number.
// Returns (nil, nil) if no order exists with that number; the reconciler
// uses the nil order to distinguish "gap is unhealable" from "found".
func (c *Client) GetOrderByNumber(ctx context.Context, number int64) (*Order, error) {
	q := url.Values{}
	q.Set("name", fmt.Sprintf("#%d", number))
	q.Set("status", "any")

	resp, err := c.get(ctx, "/orders.json?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env ordersEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("shopify: decoding order lookup response: %w", err)
	}

	if len(env.Orders) == 0 {
		return nil, nil
	}

	o, err := env.Orders[0].toOrder()
	if err != nil {
		return nil, err
	}

	return &o, nil
}

// nextPageLink extracts the rel="next" URL from a Link header.
// Shopify cursor pagination puts the full next-page URL there.
func nextPageLink(header string) string {
	if header == "" {
		return ""
	}

	for _, part := range strings.Split(header, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}

		segment := strings.SplitN(part, ";", 2)[0]

		return strings.Trim(strings.TrimSpace(segment), "<>")
	}

	return ""
}
