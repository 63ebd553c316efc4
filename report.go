package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdawsonsdp/bsbshopify/internal/sync"
)

var flagReportDays int

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize sync runs over a date range",
		RunE:  runReport,
	}

	cmd.Flags().IntVar(&flagReportDays, "days", 7, "how many days back to report on")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	since := time.Now().AddDate(0, 0, -flagReportDays)

	attempts, err := store.AttemptsSince(ctx, since.UnixNano())
	if err != nil {
		return fmt.Errorf("listing attempts: %w", err)
	}

	if flagJSON {
		return printJSON(attempts)
	}

	if len(attempts) == 0 {
		fmt.Printf("No sync runs in the last %d days.\n", flagReportDays)

		return nil
	}

	printReportTable(attempts)
	printReportTotals(attempts)

	return nil
}

func printReportTable(attempts []*sync.SyncAttempt) {
	headers := []string{"FINISHED", "STATUS", "FETCHED", "NEW", "UPDATED", "ELAPSED"}
	rows := make([][]string, 0, len(attempts))

	for _, a := range attempts {
		elapsed := time.Duration(a.FinishedAt - a.StartedAt).Round(time.Second)

		rows = append(rows, []string{
			formatNano(a.FinishedAt),
			string(a.Status),
			strconv.Itoa(a.Fetched),
			strconv.Itoa(a.NewOrders),
			strconv.Itoa(a.UpdatedOrders),
			elapsed.String(),
		})
	}

	printTable(os.Stdout, headers, rows)
}

func printReportTotals(attempts []*sync.SyncAttempt) {
	var fetched, newOrders, updated, failed int

	for _, a := range attempts {
		fetched += a.Fetched
		newOrders += a.NewOrders
		updated += a.UpdatedOrders

		if a.Status == sync.StatusRunFailed {
			failed++
		}
	}

	fmt.Printf("\n%d runs (%d failed), %d fetched, %d new, %d updated\n",
		len(attempts), failed, fetched, newOrders, updated)
}
