package cli

import (
	"context"
	"fmt"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/editing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// editResult is the JSON form of an edit run
type editResult struct {
	Saved   bool        `json:"saved"`
	Message string      `json:"message,omitempty"`
	Items   []itemRow   `json:"items"`
	Totals  *totalsView `json:"totals,omitempty"`
}

func newEditCmd(app *App) *cobra.Command {
	var (
		sets          []string
		customerNotes string
		adminNotes    string
	)

	cmd := &cobra.Command{
		Use:   "edit <invoice>",
		Short: "Edit line items and notes, then save them in one batch",
		Long: `Loads the invoice into an editing session, applies every --set and notes
flag locally, then saves all changes together. Items are saved in display
order; the first failure stops the save and leaves the remaining edits
unsaved. Totals are recalculated once after the batch.

--set takes <item>:<field>=<value>, where <item> is a 1-based position or
an item id and <field> is qty, price, price_cents, title, description or
category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			edits := make([]fieldEdit, 0, len(sets))
			for _, arg := range sets {
				e, err := parseFieldEdit(arg)
				if err != nil {
					return err
				}
				if _, err := e.toPatch(); err != nil {
					return err
				}
				edits = append(edits, e)
			}
			customerChanged := cmd.Flags().Changed("customer-notes")
			adminChanged := cmd.Flags().Changed("admin-notes")
			if len(edits) == 0 && !customerChanged && !adminChanged {
				return fmt.Errorf("nothing to edit: pass --set, --customer-notes or --admin-notes")
			}

			return app.withBackend(cmd, func(ctx context.Context, b *backend) error {
				session, err := b.session(ctx, invoiceID, app.VersionCheck)
				if err != nil {
					return err
				}
				if err := applyEdits(session, edits); err != nil {
					return err
				}
				if customerChanged {
					session.SetCustomerNotes(customerNotes)
				}
				if adminChanged {
					session.SetAdminNotes(adminNotes)
				}
				return saveSession(ctx, cmd, app, b, session)
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field edit <item>:<field>=<value> (repeatable)")
	cmd.Flags().StringVar(&customerNotes, "customer-notes", "", "Replace the notes shown to the customer")
	cmd.Flags().StringVar(&adminNotes, "admin-notes", "", "Replace the internal admin notes")
	return cmd
}

// applyEdits folds the edits per item and applies them to the session
func applyEdits(session *editing.Session, edits []fieldEdit) error {
	items := bufferedItems(session.LocalLineItems())
	order := make([]uuid.UUID, 0, len(edits))
	patches := make(map[uuid.UUID][]invoicing.LineItemPatch)

	for _, e := range edits {
		id, err := resolveItem(items, e.Item)
		if err != nil {
			return err
		}
		patch, err := e.toPatch()
		if err != nil {
			return err
		}
		if _, seen := patches[id]; !seen {
			order = append(order, id)
		}
		patches[id] = append(patches[id], patch)
	}

	for _, id := range order {
		if !session.UpdateLineItem(id, mergePatches(patches[id]...)) {
			return fmt.Errorf("item %s is not on this invoice", id)
		}
	}
	return nil
}

func saveSession(ctx context.Context, cmd *cobra.Command, app *App, b *backend, session *editing.Session) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if !session.HasUnsavedChanges() {
		if app.Output == "table" {
			statusLine(errOut, true, "Nothing to save; the edits match the saved values.")
		}
		return nil
	}

	_, saveErr := session.SaveAllChanges(ctx)
	if saveErr != nil {
		unsaved := make(map[string]bool)
		for _, id := range session.DirtyItemIDs() {
			unsaved[id.String()] = true
		}
		rows := toItemRows(bufferedItems(session.LocalLineItems()), unsaved)
		msg := editing.UserMessage(saveErr)
		if app.Output == "json" {
			if err := writeJSON(out, editResult{Saved: false, Message: msg, Items: rows}); err != nil {
				return err
			}
			return saveErr
		}
		statusLine(errOut, false, msg)
		if err := renderItems(out, app.Output, rows); err != nil {
			return err
		}
		return saveErr
	}

	inv, err := b.invoices.GetInvoice(ctx, session.InvoiceID())
	if err != nil {
		return err
	}
	totals := toTotalsView(invoiceTotals(inv))
	rows := toItemRows(bufferedItems(session.LocalLineItems()), nil)

	if app.Output == "json" {
		return writeJSON(out, editResult{Saved: true, Items: rows, Totals: &totals})
	}
	statusLine(errOut, true, "Changes saved.")
	if err := renderItems(out, app.Output, rows); err != nil {
		return err
	}
	return renderTotals(out, app.Output, totals)
}

func bufferedItems(buffered []editing.BufferedLineItem) []invoicing.LineItem {
	items := make([]invoicing.LineItem, len(buffered))
	for i, b := range buffered {
		items[i] = b.LineItem
	}
	return items
}
