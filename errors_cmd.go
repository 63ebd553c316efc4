package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rdawsonsdp/bsbshopify/internal/sync"
)

var flagErrorsAll bool

func newErrorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "List sync errors",
		RunE:  runErrors,
	}

	cmd.Flags().BoolVar(&flagErrorsAll, "all", false, "include resolved errors")

	cmd.AddCommand(newErrorsResolveCmd())

	return cmd
}

func newErrorsResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <error-id>",
		Short: "Mark a sync error as resolved",
		Args:  cobra.ExactArgs(1),
		RunE:  runErrorsResolve,
	}
}

func runErrors(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	errs, err := store.ListSyncErrors(ctx, !flagErrorsAll)
	if err != nil {
		return fmt.Errorf("listing sync errors: %w", err)
	}

	if flagJSON {
		return printJSON(errs)
	}

	if len(errs) == 0 {
		fmt.Println("No sync errors.")

		return nil
	}

	printErrorsTable(errs)

	return nil
}

func runErrorsResolve(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ResolveSyncError(ctx, args[0]); err != nil {
		return fmt.Errorf("resolving error %s: %w", args[0], err)
	}

	statusf(flagQuiet, "Resolved error %s\n", args[0])

	return nil
}

func printErrorsTable(errs []*sync.SyncError) {
	headers := []string{"ID", "WHEN", "TYPE", "ORDER", "RESOLVED", "MESSAGE"}
	rows := make([][]string, 0, len(errs))

	for _, e := range errs {
		order := e.OrderID
		if order == "" {
			order = "-"
		}

		resolved := "no"
		if e.Resolved {
			resolved = "yes"
		}

		rows = append(rows, []string{
			e.ID,
			formatNano(e.OccurredAt),
			e.ErrorType,
			order,
			resolved,
			truncate(e.ErrorMessage, 60),
		})
	}

	printTable(os.Stdout, headers, rows)
}
