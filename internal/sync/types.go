// Package sync implements the order reconciliation and tracking engine:
// change detection against a durable tracking store, batch completeness
// validation, watermark-based incremental fetch, delivery to the
// spreadsheet destination, and ordinal-gap reconciliation.
package sync

import (
	"context"
	"time"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// TrackedStatus is the lifecycle tag on a tracked order row.
type TrackedStatus string

// Values for the tracked_orders.status column.
const (
	StatusDelivered  TrackedStatus = "delivered"
	StatusSuperseded TrackedStatus = "superseded"
)

// AttemptStatus is the terminal status of one sync run.
type AttemptStatus string

// Values for the sync_attempts.status column. StatusRunPartial is
// reserved; no code path emits it yet.
const (
	StatusRunSuccess AttemptStatus = "success"
	StatusRunPartial AttemptStatus = "partial"
	StatusRunFailed  AttemptStatus = "failed"
)

// Error types for the sync_errors.error_type column.
const (
	ErrorTypeFetch      = "fetch"
	ErrorTypeDelivery   = "delivery"
	ErrorTypeProcessing = "processing"
	ErrorTypeReconcile  = "reconciliation"
)

// TrackedOrder is the persisted record of a successfully delivered order.
// A row with status=delivered exists if and only if the order has been
// durably appended to the destination at least once; the store is the
// sole authority for that fact; the destination is never read back to
// infer delivery state.
type TrackedOrder struct {
	OrderID     string // remote identifier, primary key
	OrderNumber int64  // ordinal, unique
	CreatedAt   int64  // upstream creation time (Unix nanoseconds)
	UpdatedAt   int64  // upstream update time (Unix nanoseconds)
	SyncedAt    int64  // last successful delivery (Unix nanoseconds)

	HeaderFingerprint string
	LinesFingerprint  string

	SheetRow *int64 // destination position, when known
	Status   TrackedStatus
}

// SyncAttempt is one append-only audit row per completed run. A crash
// mid-run leaves no row, which is itself informative: absence means
// "did not finish".
type SyncAttempt struct {
	ID            string // run UUID
	StartedAt     int64
	FinishedAt    int64
	Fetched       int
	NewOrders     int
	UpdatedOrders int
	Status        AttemptStatus
	ErrorMessage  string
}

// SyncError is one append-only failure record, optionally tied to an
// order. Only the resolved flag is ever mutated after insert.
type SyncError struct {
	ID           string // UUID
	OccurredAt   int64
	OrderID      string // empty when the failure is not order-specific
	ErrorType    string
	ErrorMessage string
	RetryCount   int
	Resolved     bool
}

// Mode selects between a side-effect-free preview run and a committing run.
type Mode string

const (
	ModeSimulate Mode = "simulate"
	ModeCommit   Mode = "commit"
)

// OrderSource is the remote fetch collaborator. Implemented by
// shopify.Client; tests substitute fakes.
type OrderSource interface {
	ListOrders(ctx context.Context, params shopify.ListParams, pageURL string) (*shopify.Page, error)
	GetOrderByNumber(ctx context.Context, number int64) (*shopify.Order, error)
}

// Destination is the tabular delivery collaborator. Implemented by
// sheets.Client; tests substitute fakes.
type Destination interface {
	Append(ctx context.Context, region string, rows [][]string) (int, error)
	Clear(ctx context.Context, region string) error
	ReadAll(ctx context.Context, region string) ([][]string, error)
}

// NowNano returns the current time as Unix nanoseconds, the timestamp
// representation used throughout the store.
func NowNano() int64 {
	return time.Now().UnixNano()
}
