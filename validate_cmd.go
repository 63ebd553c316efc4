package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rdawsonsdp/bsbshopify/internal/sheets"
	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// validateTimeout bounds the whole connectivity check.
const validateTimeout = 60 * time.Second

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check connectivity to Shopify and Google Sheets",
		Long: `Probe both collaborators with the configured credentials.

Fetches one order page from Shopify and reads the order region from the
spreadsheet. Nothing is written anywhere.`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	cfg := resolvedCfg

	ctx, cancel := context.WithTimeout(cmd.Context(), validateTimeout)
	defer cancel()

	source := shopify.NewClient(
		cfg.Shopify.BaseURL(),
		cfg.Shopify.AccessToken,
		defaultHTTPClient(),
		shopify.DefaultRetryPolicy(),
		logger,
	)

	dest, err := sheets.NewClient(ctx, cfg.Google.SpreadsheetID, cfg.Google.ServiceAccountFile, logger)
	if err != nil {
		return fmt.Errorf("building sheets client: %w", err)
	}

	// Probe both collaborators concurrently; first failure cancels the other.
	g, gctx := errgroup.WithContext(ctx)

	var shopifyOrders, sheetRows int

	g.Go(func() error {
		page, err := source.ListOrders(gctx, shopify.ListParams{
			Since: time.Now().Add(-24 * time.Hour),
			Limit: 1,
		}, "")
		if err != nil {
			return fmt.Errorf("shopify probe: %w", err)
		}

		shopifyOrders = len(page.Orders)

		return nil
	})

	g.Go(func() error {
		rows, err := dest.ReadAll(gctx, cfg.Google.OrdersRegion)
		if err != nil {
			return fmt.Errorf("sheets probe: %w", err)
		}

		sheetRows = len(rows)

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if flagJSON {
		return printJSON(map[string]any{
			"shopify": map[string]any{"ok": true, "recent_orders": shopifyOrders},
			"sheets":  map[string]any{"ok": true, "order_rows": sheetRows},
		})
	}

	fmt.Printf("Shopify: OK (%d orders in the last 24h)\n", shopifyOrders)
	fmt.Printf("Sheets:  OK (%d rows in %q)\n", sheetRows, cfg.Google.OrdersRegion)

	return nil
}
