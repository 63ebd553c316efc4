package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var flagResetYes bool

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <order-number>",
		Short: "Forget a delivered order so it re-syncs on the next run",
		Long: `Delete the tracking row for one order number.

The destination sheet is not touched. On the next committing run the order
is treated as new and appended again, so clean up the sheet row first if a
duplicate is unwanted.`,
		Args: cobra.ExactArgs(1),
		RunE: runReset,
	}

	cmd.Flags().BoolVar(&flagResetYes, "yes", false, "skip the confirmation prompt")

	return cmd
}

func runReset(cmd *cobra.Command, args []string) error {
	ordinal, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order number %q", args[0])
	}

	if !flagResetYes {
		fmt.Printf("Forget tracking for order %d? It will re-sync as new. [y/N] ", ordinal)

		var answer string
		fmt.Scanln(&answer)

		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")

			return nil
		}
	}

	logger := buildLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.DeleteByOrdinal(ctx, ordinal)
	if err != nil {
		return fmt.Errorf("deleting tracking row: %w", err)
	}

	if !deleted {
		fmt.Printf("Order %d is not tracked.\n", ordinal)

		return nil
	}

	statusf(flagQuiet, "Order %d forgotten; it will re-sync on the next run.\n", ordinal)

	return nil
}
