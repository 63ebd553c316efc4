package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Reconciler heals ordinal gaps in the delivered history. The upstream
// ordinal sequence is dense, so a hole between the minimum and maximum
// delivered ordinals means an order was skipped (paging cutoff, crash
// between runs). Each missing ordinal is point-fetched and delivered
// individually so one bad ordinal cannot block the rest.
type Reconciler struct {
	store     *Store
	source    OrderSource
	deliverer *Deliverer
	logger    *slog.Logger

	nowFunc func() time.Time
}

// NewReconciler builds a Reconciler.
func NewReconciler(store *Store, source OrderSource, deliverer *Deliverer, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		source:    source,
		deliverer: deliverer,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Gaps     []int64
	Healed   int
	NotFound int
	Failed   int
}

// Reconcile scans the full delivered ordinal range for gaps, point-
// fetches each missing ordinal, and delivers any that upstream still
// has. Failures are recorded per ordinal and do not stop the pass.
func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	ordinals, err := r.store.DeliveredOrdinals(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	report := &ReconcileReport{}
	if len(ordinals) < 2 {
		return report, nil
	}

	report.Gaps = ordinalGaps(ordinals)
	if len(report.Gaps) == 0 {
		r.logger.Debug("no ordinal gaps in delivered history")

		return report, nil
	}

	r.logger.Info("reconciling ordinal gaps",
		slog.Int("gaps", len(report.Gaps)),
		slog.Int64("min", ordinals[0]),
		slog.Int64("max", ordinals[len(ordinals)-1]),
	)

	for _, ordinal := range report.Gaps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		switch err := r.healOrdinal(ctx, ordinal); {
		case err == nil:
			report.Healed++
		case errors.Is(err, errOrdinalAbsent):
			report.NotFound++
		default:
			report.Failed++
			r.recordFailure(ctx, ordinal, err)
		}
	}

	r.logger.Info("reconciliation finished",
		slog.Int("healed", report.Healed),
		slog.Int("not_found", report.NotFound),
		slog.Int("failed", report.Failed),
	)

	return report, nil
}

// ordinalGaps returns the ordinals missing from a sorted delivered set.
func ordinalGaps(ordinals []int64) []int64 {
	if len(ordinals) < 2 {
		return nil
	}

	present := make(map[int64]int, len(ordinals))
	for _, n := range ordinals {
		present[n]++
	}

	return missingInRange(present, ordinals[0], ordinals[len(ordinals)-1])
}

// DeliveredGaps reports the ordinal gaps in the store's delivered
// history along with the observed bounds. Bounds are zero when nothing
// has been delivered yet.
func DeliveredGaps(ctx context.Context, store *Store) (gaps []int64, minOrd, maxOrd int64, err error) {
	ordinals, err := store.DeliveredOrdinals(ctx)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading delivered ordinals: %w", err)
	}

	if len(ordinals) == 0 {
		return nil, 0, 0, nil
	}

	return ordinalGaps(ordinals), ordinals[0], ordinals[len(ordinals)-1], nil
}

// errOrdinalAbsent marks an ordinal upstream has no order for.
var errOrdinalAbsent = errors.New("ordinal absent upstream")

func (r *Reconciler) healOrdinal(ctx context.Context, ordinal int64) error {
	order, err := r.source.GetOrderByNumber(ctx, ordinal)
	if err != nil {
		return fmt.Errorf("point fetch ordinal %d: %w", ordinal, err)
	}

	if order == nil {
		r.logger.Warn("missing ordinal has no upstream order",
			slog.Int64("ordinal", ordinal),
		)

		return errOrdinalAbsent
	}

	fp, err := ComputeFingerprints(order)
	if err != nil {
		return fmt.Errorf("fingerprinting ordinal %d: %w", ordinal, err)
	}

	changed := []Classified{{Order: *order, Fingerprints: fp}}
	if _, err := r.deliverer.Commit(ctx, changed); err != nil {
		return fmt.Errorf("delivering ordinal %d: %w", ordinal, err)
	}

	r.logger.Info("healed missing ordinal",
		slog.Int64("ordinal", ordinal),
		slog.String("order_id", order.ID),
	)

	return nil
}

func (r *Reconciler) recordFailure(ctx context.Context, ordinal int64, healErr error) {
	serr := &SyncError{
		ID:           uuid.NewString(),
		OccurredAt:   r.nowFunc().UnixNano(),
		ErrorType:    ErrorTypeReconcile,
		ErrorMessage: healErr.Error(),
	}

	if err := r.store.RecordSyncError(ctx, serr); err != nil {
		r.logger.Error("recording reconciliation error",
			slog.Int64("ordinal", ordinal),
			slog.String("error", err.Error()),
		)
	}
}
