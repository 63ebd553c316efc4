package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// testLogger returns a debug-level logger that writes to t.Log,
// so all activity appears in CI output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// newTestStore creates a Store backed by a temp file database,
// registering cleanup with t.Cleanup.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStore(context.Background(), dbPath, testLogger(t))
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close(): %v", err)
		}
	})

	return store
}

// testOrder builds a minimal valid order with the given ordinal.
func testOrder(ordinal int64) shopify.Order {
	return shopify.Order{
		ID:          fmt.Sprintf("900%d", ordinal),
		OrderNumber: ordinal,
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(ordinal) * time.Minute),
		UpdatedAt:   time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC),

		TotalPrice:    decimal.NewFromInt(100),
		SubtotalPrice: decimal.NewFromInt(90),
		TotalTax:      decimal.NewFromInt(10),

		FinancialStatus:   "paid",
		FulfillmentStatus: "unfulfilled",
		ContactEmail:      "buyer@example.com",

		Customer: shopify.Customer{FirstName: "Pat", LastName: "Jones"},
		LineItems: []shopify.LineItem{
			{
				ID:        1,
				ProductID: 42,
				VariantID: 4242,
				Title:     "chocolate cake",
				Quantity:  1,
				Price:     decimal.NewFromInt(90),
			},
		},
	}
}

// fakeSource is an in-memory OrderSource.
type fakeSource struct {
	pages     []*shopify.Page
	listErrs  []error
	listCalls int

	byNumber    map[int64]*shopify.Order
	byNumberErr error
}

func (f *fakeSource) ListOrders(_ context.Context, _ shopify.ListParams, _ string) (*shopify.Page, error) {
	call := f.listCalls
	f.listCalls++

	if call < len(f.listErrs) && f.listErrs[call] != nil {
		return nil, f.listErrs[call]
	}

	if call >= len(f.pages) {
		return &shopify.Page{}, nil
	}

	return f.pages[call], nil
}

func (f *fakeSource) GetOrderByNumber(_ context.Context, number int64) (*shopify.Order, error) {
	if f.byNumberErr != nil {
		return nil, f.byNumberErr
	}

	return f.byNumber[number], nil
}

// fakeDestination records every call against an in-memory sheet model.
type fakeDestination struct {
	appended map[string][][]string
	cleared  map[string]int
	readRows map[string][][]string

	appendErr error
	clearErr  error
	readErr   error
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{
		appended: make(map[string][][]string),
		cleared:  make(map[string]int),
		readRows: make(map[string][][]string),
	}
}

func (f *fakeDestination) Append(_ context.Context, region string, rows [][]string) (int, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}

	f.appended[region] = append(f.appended[region], rows...)

	return len(rows), nil
}

func (f *fakeDestination) Clear(_ context.Context, region string) error {
	if f.clearErr != nil {
		return f.clearErr
	}

	f.cleared[region]++
	f.appended[region] = nil

	return nil
}

func (f *fakeDestination) ReadAll(_ context.Context, region string) ([][]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}

	return f.readRows[region], nil
}

// testRegions is the region wiring used across delivery tests.
var testRegions = Regions{
	Orders:        "Customer Orders",
	Lines:         "Bakery Products Ordered",
	PreviewOrders: "TEST Customer Orders",
	PreviewLines:  "TEST Bakery Products Ordered",
}
