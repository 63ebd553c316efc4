package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// FetchResult is the outcome of one paged fetch. Complete is false when
// the fetch gave up partway with at least one page in hand. The fetch
// window is never derived from this result, only from delivered tracked
// orders.
type FetchResult struct {
	Orders   []shopify.Order
	Pages    int
	Complete bool
	Err      error // the failure that truncated a partial fetch, nil when complete
}

// Coordinator decides the incremental fetch window from the tracking
// store's delivered watermark and drives the paged fetch of the remote
// source.
type Coordinator struct {
	store  *Store
	source OrderSource
	logger *slog.Logger

	batchSize    int
	statusFilter string
	overlap      time.Duration
	lookback     time.Duration
	pageDelay    time.Duration

	// Injectable for tests.
	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Store        *Store
	Source       OrderSource
	BatchSize    int
	StatusFilter string
	Overlap      time.Duration
	Lookback     time.Duration
	PageDelay    time.Duration
	Logger       *slog.Logger
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		store:        cfg.Store,
		source:       cfg.Source,
		logger:       cfg.Logger,
		batchSize:    cfg.BatchSize,
		statusFilter: cfg.StatusFilter,
		overlap:      cfg.Overlap,
		lookback:     cfg.Lookback,
		pageDelay:    cfg.PageDelay,
		nowFunc:      time.Now,
		sleepFunc:    sleepCtx,
	}
}

// FetchWindowStart computes where the next incremental fetch begins. With
// delivered history: max(created_at) minus the overlap window, which
// absorbs upstream clock skew and late-arriving orders. Cold start: now
// minus the lookback window.
func (c *Coordinator) FetchWindowStart(ctx context.Context) (time.Time, error) {
	maxCreated, err := c.store.MaxDeliveredCreatedAt(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch window start: %w", err)
	}

	if maxCreated == 0 {
		start := c.nowFunc().Add(-c.lookback)
		c.logger.Info("cold start, using lookback window",
			slog.Time("since", start),
		)

		return start, nil
	}

	start := time.Unix(0, maxCreated).Add(-c.overlap)
	c.logger.Info("resuming from delivered watermark",
		slog.Time("watermark", time.Unix(0, maxCreated)),
		slog.Time("since", start),
	)

	return start, nil
}

// FetchAll drives the paged listing from the window start until the
// continuation link runs out. Transient per-page failures are retried by
// the source itself; if a page still fails after that, FetchAll returns
// what it has: a partial result when at least one page succeeded, or the
// error itself when zero pages arrived (fatal for the run).
func (c *Coordinator) FetchAll(ctx context.Context) (*FetchResult, error) {
	since, err := c.FetchWindowStart(ctx)
	if err != nil {
		return nil, err
	}

	params := shopify.ListParams{
		Since:  since,
		Limit:  c.batchSize,
		Status: c.statusFilter,
	}

	result := &FetchResult{Complete: true}
	pageURL := ""

	for {
		page, err := c.source.ListOrders(ctx, params, pageURL)
		if err != nil {
			if result.Pages == 0 {
				return nil, fmt.Errorf("fetching orders: %w", err)
			}

			c.logger.Warn("fetch truncated, returning partial result",
				slog.Int("pages", result.Pages),
				slog.Int("orders", len(result.Orders)),
				slog.String("error", err.Error()),
			)

			result.Complete = false
			result.Err = err

			return result, nil
		}

		result.Orders = append(result.Orders, page.Orders...)
		result.Pages++

		c.logger.Debug("accumulated order page",
			slog.Int("page", result.Pages),
			slog.Int("page_orders", len(page.Orders)),
			slog.Int("total_orders", len(result.Orders)),
		)

		if page.NextURL == "" {
			c.logger.Info("fetch complete",
				slog.Int("pages", result.Pages),
				slog.Int("orders", len(result.Orders)),
			)

			return result, nil
		}

		pageURL = page.NextURL

		if c.pageDelay > 0 {
			if err := c.sleepFunc(ctx, c.pageDelay); err != nil {
				return nil, fmt.Errorf("fetch canceled: %w", err)
			}
		}
	}
}

// sleepCtx waits for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
