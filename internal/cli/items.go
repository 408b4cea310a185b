package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newItemsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "items <invoice>",
		Short: "List the line items of an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			return app.withBackend(cmd, func(ctx context.Context, b *backend) error {
				items, err := b.store.Fetch(ctx, invoiceID)
				if err != nil {
					return err
				}
				return renderItems(cmd.OutOrStdout(), app.Output, toItemRows(items, nil))
			})
		},
	}
}

func newRecalcCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <invoice>",
		Short: "Recompute an invoice's totals and payment schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			return app.withBackend(cmd, func(ctx context.Context, b *backend) error {
				totals, err := b.invoices.RecalculateTotals(ctx, invoiceID)
				if err != nil {
					return err
				}
				if app.Output == "table" {
					msg := "Totals were already current."
					if totals.Changed {
						msg = "Totals updated."
					}
					statusLine(cmd.ErrOrStderr(), true, msg)
				}
				return renderTotals(cmd.OutOrStdout(), app.Output, toTotalsView(totals))
			})
		},
	}
}

func parseInvoiceID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid invoice id %q", arg)
	}
	return id, nil
}
