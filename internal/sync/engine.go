package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TooSoonError reports a run attempted before the minimum inter-run
// spacing has elapsed.
type TooSoonError struct {
	Wait time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("last run finished too recently, wait %s (or pass --force)", e.Wait.Round(time.Second))
}

// Engine wires the fetch coordinator, change detector, validator,
// deliverer, and reconciler into one run.
type Engine struct {
	store       *Store
	coordinator *Coordinator
	deliverer   *Deliverer
	reconciler  *Reconciler
	dest        Destination
	regions     Regions
	logger      *slog.Logger

	minRunInterval time.Duration
	nowFunc        func() time.Time
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Store          *Store
	Coordinator    *Coordinator
	Deliverer      *Deliverer
	Reconciler     *Reconciler
	Destination    Destination
	Regions        Regions
	MinRunInterval time.Duration
	Logger         *slog.Logger
}

// NewEngine builds an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		store:          cfg.Store,
		coordinator:    cfg.Coordinator,
		deliverer:      cfg.Deliverer,
		reconciler:     cfg.Reconciler,
		dest:           cfg.Destination,
		regions:        cfg.Regions,
		logger:         cfg.Logger,
		minRunInterval: cfg.MinRunInterval,
		nowFunc:        time.Now,
	}
}

// RunReport is the structured outcome of one run.
type RunReport struct {
	RunID      string
	Mode       Mode
	StartedAt  time.Time
	FinishedAt time.Time

	Fetched       int
	Pages         int
	FetchComplete bool

	New       int
	Updated   int
	Unchanged int
	Delivered int

	Missing    []int64
	Duplicates []int64

	Reconcile *ReconcileReport
	Artifacts *PreviewArtifacts
}

// Run executes one sync pass in the given mode. Commit runs record
// exactly one attempt row when they finish; simulate runs leave the
// tracking store untouched entirely.
func (e *Engine) Run(ctx context.Context, mode Mode, force bool) (*RunReport, error) {
	if !force {
		if err := e.checkSpacing(ctx); err != nil {
			return nil, err
		}
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: e.nowFunc(),
	}

	e.logger.Info("starting sync run",
		slog.String("run_id", report.RunID),
		slog.String("mode", string(mode)),
	)

	fetched, err := e.coordinator.FetchAll(ctx)
	if err != nil {
		if mode == ModeCommit {
			e.failRun(ctx, report, ErrorTypeFetch, err)
		}

		return nil, err
	}

	report.Fetched = len(fetched.Orders)
	report.Pages = fetched.Pages
	report.FetchComplete = fetched.Complete

	snap, err := e.store.DeliveredSnapshot(ctx)
	if err != nil {
		if mode == ModeCommit {
			e.failRun(ctx, report, ErrorTypeProcessing, err)
		}

		return nil, err
	}

	cls, err := Classify(fetched.Orders, snap, e.logger)
	if err != nil {
		if mode == ModeCommit {
			e.failRun(ctx, report, ErrorTypeProcessing, err)
		}

		return nil, err
	}

	report.New = len(cls.New)
	report.Updated = len(cls.Updated)
	report.Unchanged = cls.Unchanged

	batch := ValidateBatch(fetched.Orders, e.logger)
	report.Missing = batch.Missing
	report.Duplicates = batch.Duplicates

	if mode == ModeSimulate {
		art, err := e.deliverer.Simulate(ctx, cls.Changed(), cls, batch)
		if err != nil {
			return nil, err
		}

		report.Artifacts = art
		report.FinishedAt = e.nowFunc()

		return report, nil
	}

	e.crossCheckDestination(ctx)

	delivered, err := e.deliverer.Commit(ctx, cls.Changed())
	report.Delivered = delivered
	if err != nil {
		e.failRun(ctx, report, ErrorTypeDelivery, err)

		return report, err
	}

	rec, err := e.reconciler.Reconcile(ctx)
	if err != nil {
		e.failRun(ctx, report, ErrorTypeReconcile, err)

		return report, err
	}

	report.Reconcile = rec
	report.FinishedAt = e.nowFunc()

	if err := e.recordAttempt(ctx, report, StatusRunSuccess, ""); err != nil {
		return report, err
	}

	e.logger.Info("sync run finished",
		slog.String("run_id", report.RunID),
		slog.Int("fetched", report.Fetched),
		slog.Int("new", report.New),
		slog.Int("updated", report.Updated),
		slog.Int("delivered", report.Delivered),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	return report, nil
}

func (e *Engine) checkSpacing(ctx context.Context) error {
	last, err := e.store.LastAttempt(ctx)
	if err != nil {
		return fmt.Errorf("checking run spacing: %w", err)
	}

	if last == nil {
		return nil
	}

	elapsed := e.nowFunc().Sub(time.Unix(0, last.FinishedAt))
	if elapsed < e.minRunInterval {
		return &TooSoonError{Wait: e.minRunInterval - elapsed}
	}

	return nil
}

// crossCheckDestination reads the order region once and compares its
// highest delivered ordinal with the tracking store's. Disagreement is
// logged and nothing more; the store stays the sole delivery authority.
func (e *Engine) crossCheckDestination(ctx context.Context) {
	rows, err := e.dest.ReadAll(ctx, e.regions.Orders)
	if err != nil {
		e.logger.Warn("destination cross-check skipped",
			slog.String("error", err.Error()),
		)

		return
	}

	sheetMax := maxWebOrdinal(rows)

	ordinals, err := e.store.DeliveredOrdinals(ctx)
	if err != nil {
		e.logger.Warn("destination cross-check skipped",
			slog.String("error", err.Error()),
		)

		return
	}

	var storeMax int64
	if len(ordinals) > 0 {
		storeMax = ordinals[len(ordinals)-1]
	}

	if sheetMax != storeMax {
		e.logger.Warn("destination and tracking store disagree on max ordinal",
			slog.Int64("destination_max", sheetMax),
			slog.Int64("store_max", storeMax),
		)
	}
}

// maxWebOrdinal scans destination rows for the highest WEB-prefixed
// order identifier.
func maxWebOrdinal(rows [][]string) int64 {
	const orderIDColumn = 2

	var max int64
	for _, row := range rows {
		if len(row) <= orderIDColumn {
			continue
		}

		id := strings.TrimPrefix(row[orderIDColumn], "WEB")
		if id == row[orderIDColumn] {
			continue
		}

		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}

		if n > max {
			max = n
		}
	}

	return max
}

func (e *Engine) failRun(ctx context.Context, report *RunReport, errType string, runErr error) {
	serr := &SyncError{
		ID:           uuid.NewString(),
		OccurredAt:   e.nowFunc().UnixNano(),
		ErrorType:    errType,
		ErrorMessage: runErr.Error(),
	}

	if err := e.store.RecordSyncError(ctx, serr); err != nil {
		e.logger.Error("recording run error", slog.String("error", err.Error()))
	}

	report.FinishedAt = e.nowFunc()

	if err := e.recordAttempt(ctx, report, StatusRunFailed, runErr.Error()); err != nil {
		e.logger.Error("recording failed attempt", slog.String("error", err.Error()))
	}
}

func (e *Engine) recordAttempt(ctx context.Context, report *RunReport, status AttemptStatus, message string) error {
	attempt := &SyncAttempt{
		ID:            report.RunID,
		StartedAt:     report.StartedAt.UnixNano(),
		FinishedAt:    report.FinishedAt.UnixNano(),
		Fetched:       report.Fetched,
		NewOrders:     report.New,
		UpdatedOrders: report.Updated,
		Status:        status,
		ErrorMessage:  message,
	}

	if err := e.store.RecordAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}

	return nil
}
