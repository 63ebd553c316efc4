package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rdawsonsdp/bsbshopify/internal/sync"
)

func newMissingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "missing",
		Short: "Show ordinal gaps in the delivered history",
		Long: `Scan the tracked order numbers for gaps.

Order numbers are assigned densely upstream, so a hole between the lowest
and highest tracked numbers means an order was never delivered. Gaps shown
here are healed automatically by the next 'run --commit'.`,
		RunE: runMissing,
	}
}

func runMissing(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	gaps, minOrd, maxOrd, err := sync.DeliveredGaps(ctx, store)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(map[string]any{
			"min":     minOrd,
			"max":     maxOrd,
			"missing": gaps,
		})
	}

	if maxOrd == 0 {
		fmt.Println("No tracked orders yet.")

		return nil
	}

	if len(gaps) == 0 {
		fmt.Printf("No gaps: ordinals %d..%d are fully delivered.\n", minOrd, maxOrd)

		return nil
	}

	fmt.Printf("Missing ordinals in %d..%d: %v\n", minOrd, maxOrd, gaps)

	return nil
}
