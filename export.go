package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var flagExportOutput string

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full tracking state as CSV or JSON",
		RunE:  runExport,
	}

	cmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	orders, err := store.ListAllTrackedOrders(ctx)
	if err != nil {
		return fmt.Errorf("listing tracked orders: %w", err)
	}

	out := os.Stdout
	if flagExportOutput != "" {
		f, err := os.Create(flagExportOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", flagExportOutput, err)
		}
		defer f.Close()

		out = f
	}

	if flagJSON {
		enc := newIndentedEncoder(out)

		if err := enc.Encode(orders); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	w := csv.NewWriter(out)

	header := []string{
		"order_id", "order_number", "created_at", "updated_at", "synced_at",
		"header_fingerprint", "lines_fingerprint", "status",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	for _, o := range orders {
		row := []string{
			o.OrderID,
			strconv.FormatInt(o.OrderNumber, 10),
			formatNano(o.CreatedAt),
			formatNano(o.UpdatedAt),
			formatNano(o.SyncedAt),
			o.HeaderFingerprint,
			o.LinesFingerprint,
			string(o.Status),
		}

		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	statusf(flagQuiet, "Exported %d tracked orders.\n", len(orders))

	return nil
}
