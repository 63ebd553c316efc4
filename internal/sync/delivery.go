package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// Regions names the destination ranges a Deliverer writes to. Production
// regions receive appends on commit; preview regions are cleared and
// rewritten on simulate.
type Regions struct {
	Orders        string
	Lines         string
	PreviewOrders string
	PreviewLines  string
}

// Deliverer pushes transformed rows to the destination and, on commit,
// records delivery in the tracking store. The destination write always
// lands before the tracking write; a crash between the two re-delivers
// on the next run rather than silently dropping an order.
type Deliverer struct {
	dest       Destination
	store      *Store
	regions    Regions
	previewDir string
	logger     *slog.Logger

	nowFunc func() time.Time
}

// NewDeliverer builds a Deliverer.
func NewDeliverer(dest Destination, store *Store, regions Regions, previewDir string, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		dest:       dest,
		store:      store,
		regions:    regions,
		previewDir: previewDir,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// DeliveryError reports a failed destination append. The whole batch is
// abandoned; no tracking rows are written for it.
type DeliveryError struct {
	Region string
	Rows   int
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivering %d rows to %q: %v", e.Rows, e.Region, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Simulate previews a delivery without side effects on tracking state.
// It writes CSV artifacts under the preview directory and rewrites the
// preview regions (clear then full write with headers). The production
// regions and the tracking store are never touched.
func (d *Deliverer) Simulate(ctx context.Context, changed []Classified, cls *Classification, report *BatchReport) (*PreviewArtifacts, error) {
	orders := ordersOf(changed)
	rs := TransformOrders(orders)

	art, err := WritePreviewArtifacts(d.previewDir, rs, cls, report, d.nowFunc())
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	if err := d.rewriteRegion(ctx, d.regions.PreviewOrders, OrderHeaders, rs.Orders); err != nil {
		return art, err
	}
	if err := d.rewriteRegion(ctx, d.regions.PreviewLines, LineHeaders, rs.Lines); err != nil {
		return art, err
	}

	d.logger.Info("simulated delivery",
		slog.Int("orders", len(rs.Orders)),
		slog.Int("lines", len(rs.Lines)),
		slog.String("preview_dir", d.previewDir),
	)

	return art, nil
}

func (d *Deliverer) rewriteRegion(ctx context.Context, region string, headers []string, rows [][]string) error {
	if err := d.dest.Clear(ctx, region); err != nil {
		return &DeliveryError{Region: region, Rows: len(rows), Err: err}
	}

	all := make([][]string, 0, len(rows)+1)
	all = append(all, headers)
	all = append(all, rows...)

	if _, err := d.dest.Append(ctx, region, all); err != nil {
		return &DeliveryError{Region: region, Rows: len(rows), Err: err}
	}

	return nil
}

// Commit appends the transformed rows to the production regions, then
// upserts one tracked row per delivered order. Returns the number of
// orders tracked.
func (d *Deliverer) Commit(ctx context.Context, changed []Classified) (int, error) {
	if len(changed) == 0 {
		return 0, nil
	}

	orders := ordersOf(changed)
	rs := TransformOrders(orders)

	if len(rs.Orders) > 0 {
		if _, err := d.dest.Append(ctx, d.regions.Orders, rs.Orders); err != nil {
			derr := &DeliveryError{Region: d.regions.Orders, Rows: len(rs.Orders), Err: err}
			d.recordFailure(ctx, derr)

			return 0, derr
		}
	}

	if len(rs.Lines) > 0 {
		if _, err := d.dest.Append(ctx, d.regions.Lines, rs.Lines); err != nil {
			derr := &DeliveryError{Region: d.regions.Lines, Rows: len(rs.Lines), Err: err}
			d.recordFailure(ctx, derr)

			return 0, derr
		}
	}

	now := d.nowFunc().UnixNano()
	tracked := 0

	for i := range changed {
		c := &changed[i]
		row := &TrackedOrder{
			OrderID:           c.Order.ID,
			OrderNumber:       c.Order.OrderNumber,
			CreatedAt:         c.Order.CreatedAt.UnixNano(),
			UpdatedAt:         c.Order.UpdatedAt.UnixNano(),
			SyncedAt:          now,
			HeaderFingerprint: c.Fingerprints.Header,
			LinesFingerprint:  c.Fingerprints.Lines,
			Status:            StatusDelivered,
		}

		if err := d.store.UpsertTrackedOrder(ctx, row); err != nil {
			return tracked, fmt.Errorf("tracking order %s after delivery: %w", c.Order.ID, err)
		}

		tracked++
	}

	d.logger.Info("committed delivery",
		slog.Int("orders", len(rs.Orders)),
		slog.Int("lines", len(rs.Lines)),
		slog.Int("tracked", tracked),
	)

	return tracked, nil
}

func (d *Deliverer) recordFailure(ctx context.Context, derr *DeliveryError) {
	serr := &SyncError{
		ID:           uuid.NewString(),
		OccurredAt:   d.nowFunc().UnixNano(),
		ErrorType:    ErrorTypeDelivery,
		ErrorMessage: derr.Error(),
	}

	if err := d.store.RecordSyncError(ctx, serr); err != nil {
		d.logger.Error("recording delivery error", slog.String("error", err.Error()))
	}
}

func ordersOf(changed []Classified) []shopify.Order {
	orders := make([]shopify.Order, len(changed))
	for i := range changed {
		orders[i] = changed[i].Order
	}

	return orders
}
