package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdawsonsdp/bsbshopify/internal/config"
	"github.com/rdawsonsdp/bsbshopify/internal/sheets"
	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
	"github.com/rdawsonsdp/bsbshopify/internal/sync"
)

var (
	flagCommit bool
	flagForce  bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sync pass",
		Long: `Fetch new and changed Shopify orders and deliver them to the sheet.

Without --commit the run is a simulation: transformed rows are written to
CSV preview files and the TEST worksheet regions, and no tracking state
changes. With --commit the rows are appended to the production regions and
each delivered order is recorded in the tracking database.`,
		RunE: runRun,
	}

	cmd.Flags().BoolVar(&flagCommit, "commit", false, "append to production regions and record delivery")
	cmd.Flags().BoolVar(&flagForce, "force", false, "bypass the minimum run spacing check")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := buildEngine(ctx, store, logger)
	if err != nil {
		return err
	}

	mode := sync.ModeSimulate
	if flagCommit {
		mode = sync.ModeCommit
	}

	report, err := engine.Run(ctx, mode, flagForce)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(report)
	}

	printRunReport(report)

	return nil
}

// openStore opens the tracking database from the resolved config.
func openStore(ctx context.Context, logger *slog.Logger) (*sync.Store, error) {
	store, err := sync.NewStore(ctx, resolvedCfg.Sync.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening tracking store: %w", err)
	}

	return store, nil
}

// buildEngine assembles the full collaborator graph from the resolved
// config: fetch client, sheet client, deliverer, reconciler, engine.
func buildEngine(ctx context.Context, store *sync.Store, logger *slog.Logger) (*sync.Engine, error) {
	cfg := resolvedCfg

	source := shopify.NewClient(
		cfg.Shopify.BaseURL(),
		cfg.Shopify.AccessToken,
		defaultHTTPClient(),
		retryPolicy(cfg),
		logger,
	)

	dest, err := sheets.NewClient(ctx, cfg.Google.SpreadsheetID, cfg.Google.ServiceAccountFile, logger)
	if err != nil {
		return nil, fmt.Errorf("building sheets client: %w", err)
	}

	regions := sync.Regions{
		Orders:        cfg.Google.OrdersRegion,
		Lines:         cfg.Google.LinesRegion,
		PreviewOrders: cfg.Google.PreviewOrdersRegion,
		PreviewLines:  cfg.Google.PreviewLinesRegion,
	}

	coordinator := sync.NewCoordinator(sync.CoordinatorConfig{
		Store:        store,
		Source:       source,
		BatchSize:    cfg.Shopify.BatchSize,
		StatusFilter: cfg.Shopify.StatusFilter,
		Overlap:      cfg.Sync.Overlap(),
		Lookback:     cfg.Sync.Lookback(),
		PageDelay:    cfg.Sync.PageDelay(),
		Logger:       logger,
	})

	deliverer := sync.NewDeliverer(dest, store, regions, cfg.Sync.PreviewDir, logger)
	reconciler := sync.NewReconciler(store, source, deliverer, logger)

	return sync.NewEngine(sync.EngineConfig{
		Store:          store,
		Coordinator:    coordinator,
		Deliverer:      deliverer,
		Reconciler:     reconciler,
		Destination:    dest,
		Regions:        regions,
		MinRunInterval: cfg.Sync.MinRunInterval(),
		Logger:         logger,
	}), nil
}

// retryPolicy derives the fetch retry policy from config, keeping the
// default backoff shape.
func retryPolicy(cfg *config.Config) shopify.RetryPolicy {
	policy := shopify.DefaultRetryPolicy()
	if cfg.Sync.MaxRetries > 0 {
		policy.MaxAttempts = cfg.Sync.MaxRetries
	}

	return policy
}

func printRunReport(r *sync.RunReport) {
	statusf(flagQuiet, "Run %s (%s) finished in %s\n",
		r.RunID, r.Mode, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	fmt.Printf("Fetched:   %d orders over %d pages", r.Fetched, r.Pages)
	if !r.FetchComplete {
		fmt.Printf(" (incomplete)")
	}
	fmt.Println()

	fmt.Printf("New:       %d\n", r.New)
	fmt.Printf("Updated:   %d\n", r.Updated)
	fmt.Printf("Unchanged: %d\n", r.Unchanged)

	if r.Mode == sync.ModeCommit {
		fmt.Printf("Delivered: %d\n", r.Delivered)
	}

	if len(r.Missing) > 0 {
		fmt.Printf("Missing ordinals in batch: %v\n", r.Missing)
	}

	if len(r.Duplicates) > 0 {
		fmt.Printf("Duplicate ordinals in batch: %v\n", r.Duplicates)
	}

	if r.Reconcile != nil && len(r.Reconcile.Gaps) > 0 {
		fmt.Printf("Reconciled gaps: %d healed, %d absent upstream, %d failed\n",
			r.Reconcile.Healed, r.Reconcile.NotFound, r.Reconcile.Failed)
	}

	if r.Artifacts != nil {
		if r.Artifacts.OrdersCSV != "" {
			fmt.Printf("Preview orders CSV: %s\n", r.Artifacts.OrdersCSV)
		}
		if r.Artifacts.LinesCSV != "" {
			fmt.Printf("Preview lines CSV:  %s\n", r.Artifacts.LinesCSV)
		}
		fmt.Printf("Preview summary:    %s\n", r.Artifacts.SummaryTxt)
	}
}
