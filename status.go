package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdawsonsdp/bsbshopify/internal/sync"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync state: last run, tracked orders, pending errors",
		RunE:  runStatus,
	}
}

// statusReport is the JSON shape of the status command output.
type statusReport struct {
	LastRun       *statusRun `json:"last_run,omitempty"`
	TrackedOrders int        `json:"tracked_orders"`
	PendingErrors int        `json:"pending_errors"`
}

type statusRun struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	FinishedAt string `json:"finished_at"`
	Fetched    int    `json:"fetched"`
	New        int    `json:"new"`
	Updated    int    `json:"updated"`
	Error      string `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	last, err := store.LastAttempt(ctx)
	if err != nil {
		return fmt.Errorf("reading last attempt: %w", err)
	}

	tracked, err := store.CountDelivered(ctx)
	if err != nil {
		return fmt.Errorf("counting tracked orders: %w", err)
	}

	pending, err := store.PendingErrorCount(ctx)
	if err != nil {
		return fmt.Errorf("counting pending errors: %w", err)
	}

	report := statusReport{TrackedOrders: tracked, PendingErrors: pending}
	if last != nil {
		report.LastRun = &statusRun{
			ID:         last.ID,
			Status:     string(last.Status),
			FinishedAt: time.Unix(0, last.FinishedAt).Format(time.RFC3339),
			Fetched:    last.Fetched,
			New:        last.NewOrders,
			Updated:    last.UpdatedOrders,
			Error:      last.ErrorMessage,
		}
	}

	if flagJSON {
		return printJSON(report)
	}

	printStatusText(&report, last)

	return nil
}

func printStatusText(report *statusReport, last *sync.SyncAttempt) {
	if last == nil {
		fmt.Println("No sync runs recorded yet.")
	} else {
		fmt.Printf("Last run:       %s (%s)\n", formatNano(last.FinishedAt), last.Status)
		fmt.Printf("  Fetched:      %d\n", last.Fetched)
		fmt.Printf("  New:          %d\n", last.NewOrders)
		fmt.Printf("  Updated:      %d\n", last.UpdatedOrders)

		if last.ErrorMessage != "" {
			fmt.Printf("  Error:        %s\n", last.ErrorMessage)
		}
	}

	fmt.Printf("Tracked orders: %d\n", report.TrackedOrders)
	fmt.Printf("Pending errors: %d\n", report.PendingErrors)
}
