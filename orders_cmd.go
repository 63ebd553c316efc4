package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rdawsonsdp/bsbshopify/internal/sync"
)

var flagOrdersLimit int

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List recently synced orders",
		RunE:  runOrders,
	}

	cmd.Flags().IntVar(&flagOrdersLimit, "limit", 20, "maximum orders to show")

	return cmd
}

// orderRow is the JSON shape of one listed order.
type orderRowJSON struct {
	OrderID     string `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	SyncedAt    string `json:"synced_at"`
}

func runOrders(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	orders, err := store.RecentTrackedOrders(ctx, flagOrdersLimit)
	if err != nil {
		return fmt.Errorf("listing tracked orders: %w", err)
	}

	if flagJSON {
		out := make([]orderRowJSON, 0, len(orders))
		for _, o := range orders {
			out = append(out, orderRowJSON{
				OrderID:     o.OrderID,
				OrderNumber: o.OrderNumber,
				Status:      string(o.Status),
				CreatedAt:   formatNano(o.CreatedAt),
				SyncedAt:    formatNano(o.SyncedAt),
			})
		}

		return printJSON(out)
	}

	if len(orders) == 0 {
		fmt.Println("No tracked orders yet. Run 'bsbsync run --commit' to sync.")

		return nil
	}

	printOrdersTable(orders)

	return nil
}

func printOrdersTable(orders []*sync.TrackedOrder) {
	headers := []string{"ORDER", "ID", "STATUS", "CREATED", "SYNCED"}
	rows := make([][]string, 0, len(orders))

	for _, o := range orders {
		rows = append(rows, []string{
			fmt.Sprintf("WEB%d", o.OrderNumber),
			o.OrderID,
			string(o.Status),
			formatNano(o.CreatedAt),
			formatNano(o.SyncedAt),
		})
	}

	printTable(os.Stdout, headers, rows)
}
