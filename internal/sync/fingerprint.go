package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// Fingerprints holds the two content digests computed per order. They are
// stored independently so a header-only change is distinguishable from a
// line-item-only change, though both currently drive the same "updated"
// classification.
type Fingerprints struct {
	Header string
	Lines  string
}

// headerProjection selects the order-level fields whose change should
// trigger redelivery. Struct field order is fixed, so encoding/json
// produces a canonical byte sequence for hashing.
type headerProjection struct {
	TotalPrice        string           `json:"total_price"`
	SubtotalPrice     string           `json:"subtotal_price"`
	TotalTax          string           `json:"total_tax"`
	Customer          shopify.Customer `json:"customer"`
	BillingAddress    shopify.Address  `json:"billing_address"`
	ShippingAddress   shopify.Address  `json:"shipping_address"`
	FulfillmentStatus string           `json:"fulfillment_status"`
	FinancialStatus   string           `json:"financial_status"`
}

// lineProjection selects the per-item fields that participate in the
// line-items digest.
type lineProjection struct {
	ProductID  int64               `json:"product_id"`
	VariantID  int64               `json:"variant_id"`
	Quantity   int                 `json:"quantity"`
	Price      string              `json:"price"`
	Properties []shopify.Attribute `json:"properties"`
}

// ComputeFingerprints digests the header and line-item projections of an
// order. Deterministic: the same order always produces the same pair.
func ComputeFingerprints(o *shopify.Order) (Fingerprints, error) {
	header := headerProjection{
		TotalPrice:        o.TotalPrice.String(),
		SubtotalPrice:     o.SubtotalPrice.String(),
		TotalTax:          o.TotalTax.String(),
		Customer:          o.Customer,
		BillingAddress:    o.BillingAddress,
		ShippingAddress:   o.ShippingAddress,
		FulfillmentStatus: o.FulfillmentStatus,
		FinancialStatus:   o.FinancialStatus,
	}

	headerDigest, err := digest(header)
	if err != nil {
		return Fingerprints{}, fmt.Errorf("header fingerprint for order %s: %w", o.ID, err)
	}

	lines := make([]lineProjection, 0, len(o.LineItems))
	for i := range o.LineItems {
		li := &o.LineItems[i]
		lines = append(lines, lineProjection{
			ProductID:  li.ProductID,
			VariantID:  li.VariantID,
			Quantity:   li.Quantity,
			Price:      li.Price.String(),
			Properties: li.Properties,
		})
	}

	linesDigest, err := digest(lines)
	if err != nil {
		return Fingerprints{}, fmt.Errorf("lines fingerprint for order %s: %w", o.ID, err)
	}

	return Fingerprints{Header: headerDigest, Lines: linesDigest}, nil
}

// digest returns the hex SHA-256 of the canonical JSON encoding of v.
func digest(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}
