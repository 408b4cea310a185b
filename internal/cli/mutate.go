package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/spf13/cobra"
)

func newAddCmd(app *App) *cobra.Command {
	var (
		title       string
		description string
		quantity    int
		price       string
		category    string
	)

	cmd := &cobra.Command{
		Use:   "add <invoice>",
		Short: "Add a line item and recalculate totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			if quantity < 0 {
				return fmt.Errorf("--qty cannot be negative")
			}
			cents, err := parseDollars(price)
			if err != nil {
				return err
			}
			input := invoicing.LineItemInput{
				Title:          strings.TrimSpace(title),
				Description:    description,
				Quantity:       quantity,
				UnitPriceCents: cents,
				Category:       strings.TrimSpace(category),
			}

			return app.withBackend(cmd, func(ctx context.Context, b *backend) error {
				created, err := b.mutations().Create(ctx, invoiceID, []invoicing.LineItemInput{input})
				if err != nil {
					return err
				}
				if app.Output == "table" {
					statusLine(cmd.ErrOrStderr(), true, "Line item added.")
				}
				return renderItems(cmd.OutOrStdout(), app.Output, toItemRows(created, nil))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Item title")
	cmd.Flags().StringVar(&description, "description", "", "Item description")
	cmd.Flags().IntVar(&quantity, "qty", 1, "Quantity")
	cmd.Flags().StringVar(&price, "price", "0", "Unit price in dollars")
	cmd.Flags().StringVar(&category, "category", "", "Category (a known menu section or a custom label)")
	return cmd
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <invoice> <item>",
		Short: "Remove a line item by position or id and recalculate totals",
		Args:  cobra.ExactArgs(2),
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
				itemID, err := resolveItem(items, args[1])
				if err != nil {
					return err
				}
				if err := b.mutations().Delete(ctx, invoiceID, itemID); err != nil {
					return err
				}
				if app.Output == "json" {
					return writeJSON(cmd.OutOrStdout(), map[string]string{"removed": itemID.String()})
				}
				statusLine(cmd.ErrOrStderr(), true, "Line item removed.")
				return nil
			})
		},
	}
}

func newUpdateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update <invoice> <item> <field>=<value>...",
		Short: "Change one line item immediately, rolling back the local view on failure",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			patches := make([]invoicing.LineItemPatch, 0, len(args)-2)
			for _, assignment := range args[2:] {
				e, err := parseFieldEdit(args[1] + ":" + assignment)
				if err != nil {
					return err
				}
				patch, err := e.toPatch()
				if err != nil {
					return err
				}
				patches = append(patches, patch)
			}

			return app.withBackend(cmd, func(ctx context.Context, b *backend) error {
				items, err := b.store.Fetch(ctx, invoiceID)
				if err != nil {
					return err
				}
				itemID, err := resolveItem(items, args[1])
				if err != nil {
					return err
				}
				// The optimistic path writes into the cached view
				b.views.Set(cache.LineItemsKey(invoiceID), items)

				updated, err := b.mutations().Update(ctx, invoiceID, itemID, mergePatches(patches...))
				if err != nil {
					return err
				}
				if app.Output == "table" {
					statusLine(cmd.ErrOrStderr(), true, "Line item updated.")
				}
				return renderItems(cmd.OutOrStdout(), app.Output, toItemRows([]invoicing.LineItem{*updated}, nil))
			})
		},
	}
}
