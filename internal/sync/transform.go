package sync

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// OrderHeaders is the column schema of the order region. The destination
// sheet owns this layout; column order and spelling must not change.
var OrderHeaders = []string{
	"Status", "Order Date", "OrderID", "WebOrderID", "Special",
	"TextNumber", "Pickup Timestamp", "Due Date", "Customer Name",
	"Due Pickup Date", "Due Pickup Time", "Customer First Name",
	"Customer Last Name", "Address", "Email", "City", "Country",
	"PhoneNumber", "Taxes", "TextOk", "EmailOk", "Total", "Order Type",
	"Updated", "LineItems", "Order Count", "Order Notes", "Location",
	"Order Image", "OrderLineItemHeader", "TopofFormHeader",
	"FormDescriptionHeader", "DueDateRulesHeader", "Printed",
	"ChangeTimeStamp", "Order Change Notes", "Order Taker",
	"Customer Ready Text Sent", "Late Pickup Reminder Sent",
	"PickupReminderSent",
}

// LineHeaders is the column schema of the line item region.
var LineHeaders = []string{
	"OrderID", "LineItem", "Type", "Size", "Unit Price", "CakeQty",
	"Color", "Writing Notes", "Category", "Product Description",
	"Line Item Notes", "Flavor", "Addons", "Item Tax (Calculated)",
}

// Line item ordinals map to letters; anything past G overflows to "*".
var lineLetters = []string{"A", "B", "C", "D", "E", "F", "G"}

// sizeAliases normalizes variant titles to the sheet's shorthand.
var sizeAliases = map[string]string{
	"2 Layer":  "2L",
	"2 Layers": "2L",
	"4 Layer":  "4L",
	"4 Layers": "4L",
	"OBAMA":    "Obama",
}

var titleCaser = cases.Title(language.AmericanEnglish)

// RowSet is the destination-shaped output of transforming one batch: one
// header row per order and one line row per line item. Transforming the
// same orders twice yields byte-identical rows.
type RowSet struct {
	Orders [][]string
	Lines  [][]string
}

// Empty reports whether the set carries no rows at all.
func (rs *RowSet) Empty() bool {
	return len(rs.Orders) == 0 && len(rs.Lines) == 0
}

// TransformOrders maps typed orders into the two destination row sets.
// It is a pure function of its input.
func TransformOrders(orders []shopify.Order) *RowSet {
	rs := &RowSet{}
	for i := range orders {
		o := &orders[i]
		rs.Orders = append(rs.Orders, orderRow(o))
		for j := range o.LineItems {
			rs.Lines = append(rs.Lines, lineRow(o, &o.LineItems[j], j+1))
		}
	}

	return rs
}

func orderRow(o *shopify.Order) []string {
	pickupDate := o.NoteAttribute("Pickup-Date")
	if pickupDate == "" {
		pickupDate = o.NoteAttribute("Shipping Date")
	}
	if pickupDate == "" {
		pickupDate = o.NoteAttribute("Shipping-Date")
	}

	return []string{
		"New",                          // Status
		formatSheetDate(o.CreatedAt),   // Order Date
		webOrderID(o.OrderNumber),      // OrderID
		fmt.Sprint(o.OrderNumber),      // WebOrderID
		"",                             // Special
		"",                             // TextNumber
		"",                             // Pickup Timestamp
		"",                             // Due Date
		"",                             // Customer Name
		reformatDate(pickupDate),       // Due Pickup Date
		o.NoteAttribute("Pickup-Time"), // Due Pickup Time
		o.Customer.FirstName,           // Customer First Name
		o.Customer.LastName,            // Customer Last Name
		"",                             // Address
		o.ContactEmail,                 // Email
		"",                             // City
		"",                             // Country
		o.Phone,                        // PhoneNumber
		"",                             // Taxes
		"",                             // TextOk
		"",                             // EmailOk
		o.TotalPrice.String(),          // Total
		orderTypeFromTags(o.Tags),      // Order Type
		"",                             // Updated
		"",                             // LineItems
		"",                             // Order Count
		"",                             // Order Notes
		"",                             // Location
		"",                             // Order Image
		"",                             // OrderLineItemHeader
		"",                             // TopofFormHeader
		"",                             // FormDescriptionHeader
		"",                             // DueDateRulesHeader
		"",                             // Printed
		"",                             // ChangeTimeStamp
		"",                             // Order Change Notes
		"Web",                          // Order Taker
		"",                             // Customer Ready Text Sent
		"",                             // Late Pickup Reminder Sent
		"",                             // PickupReminderSent
	}
}

func lineRow(o *shopify.Order, li *shopify.LineItem, ordinal int) []string {
	size := li.VariantTitle
	if alias, ok := sizeAliases[size]; ok {
		size = alias
	}

	return []string{
		webOrderID(o.OrderNumber),          // OrderID
		lineLetter(ordinal),                // LineItem
		li.Title,                           // Type
		size,                               // Size
		li.Price.String(),                  // Unit Price
		fmt.Sprint(li.Quantity),            // CakeQty
		li.Property("Writing-Color"),       // Color
		li.Property("Cake Writing"),        // Writing Notes
		"Cake",                             // Category
		productDescription(li.Title, size), // Product Description
		"",                                 // Line Item Notes
		"",                                 // Flavor
		"",                                 // Addons
		"",                                 // Item Tax (Calculated)
	}
}

// webOrderID prefixes the ordinal for the destination's order key space.
func webOrderID(n int64) string {
	return fmt.Sprintf("WEB%d", n)
}

func lineLetter(ordinal int) string {
	if ordinal >= 1 && ordinal <= len(lineLetters) {
		return lineLetters[ordinal-1]
	}

	return "*"
}

// orderTypeFromTags maps the comma-delimited tag string to the sheet's
// order type vocabulary. Matching is case-insensitive; unknown tags fall
// back to "Web".
func orderTypeFromTags(tags string) string {
	lower := strings.ToLower(tags)

	switch {
	case strings.Contains(lower, "pickup order"):
		return "Pickup Order"
	case strings.Contains(lower, "nationwide shipping"):
		return "Nationwide Shipping"
	case strings.Contains(lower, "local delivery order"):
		return "Local Delivery Order"
	default:
		return "Web"
	}
}

func productDescription(title, size string) string {
	return titleCaser.String(strings.TrimSpace(title + " " + size))
}

// formatSheetDate renders a timestamp as MM-DD-YYYY, the sheet's date
// convention.
func formatSheetDate(t time.Time) string {
	return t.Format("01-02-2006")
}

// dateLayouts are the formats pickup/shipping note attributes arrive in.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// reformatDate normalizes a free-form date string to MM-DD-YYYY. Strings
// that match no known layout pass through unchanged.
func reformatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return formatSheetDate(t)
		}
	}

	return s
}
