package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	invoicingapp "github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	dirtyStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#d19a66"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6a9955")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d16d7a")).Bold(true)
)

func validateOutput(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (table|json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// itemRow is one line item as printed
type itemRow struct {
	Position  int    `json:"position"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
	Category  string `json:"category"`
	Origin    string `json:"origin"`
	Unsaved   bool   `json:"unsaved,omitempty"`
}

func toItemRows(items []invoicing.LineItem, unsaved map[string]bool) []itemRow {
	rows := make([]itemRow, len(items))
	for i := range items {
		item := &items[i]
		rows[i] = itemRow{
			Position:  i + 1,
			ID:        item.ID.String(),
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: formatCents(item.UnitPriceCents),
			Total:     formatCents(item.TotalPriceCents),
			Category:  item.Category,
			Origin:    string(item.Origin()),
			Unsaved:   unsaved[item.ID.String()],
		}
	}
	return rows
}

func renderItems(w io.Writer, format string, rows []itemRow) error {
	if format == "json" {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No line items.")
		return err
	}
	t := newTable("#", "Title", "Qty", "Unit", "Total", "Category", "Origin").
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(rows) && rows[row].Unsaved:
				return dirtyStyle
			default:
				return cellStyle
			}
		})
	for _, r := range rows {
		title := r.Title
		if r.Unsaved {
			title += " *"
		}
		t.Row(strconv.Itoa(r.Position), title, strconv.Itoa(r.Quantity), r.UnitPrice, r.Total, r.Category, r.Origin)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// totalsView is the printed form of an invoice's totals and schedule
type totalsView struct {
	InvoiceID  string          `json:"invoice_id"`
	Subtotal   string          `json:"subtotal"`
	Discount   string          `json:"discount"`
	Tax        string          `json:"tax"`
	Total      string          `json:"total"`
	Milestones []milestoneView `json:"milestones,omitempty"`
}

type milestoneView struct {
	Type       string `json:"type"`
	Percentage string `json:"percentage"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
}

func toTotalsView(t *invoicingapp.TotalsResponse) totalsView {
	v := totalsView{
		InvoiceID: t.InvoiceID.String(),
		Subtotal:  formatCents(t.SubtotalCents),
		Discount:  formatCents(t.DiscountCents),
		Tax:       formatCents(t.TaxCents),
		Total:     formatCents(t.TotalCents),
	}
	for _, m := range t.Milestones {
		v.Milestones = append(v.Milestones, milestoneView{
			Type:       m.Type,
			Percentage: m.Percentage.String() + "%",
			Amount:     formatCents(m.AmountCents),
			Status:     m.Status,
		})
	}
	return v
}

func invoiceTotals(inv *invoicingapp.InvoiceResponse) *invoicingapp.TotalsResponse {
	return &invoicingapp.TotalsResponse{
		InvoiceID:      inv.ID,
		SubtotalCents:  inv.SubtotalCents,
		DiscountCents:  inv.DiscountCents,
		TaxCents:       inv.TaxCents,
		TotalCents:     inv.TotalCents,
		Milestones:     inv.Milestones,
		RecalculatedAt: inv.RecalculatedAt,
	}
}

func renderTotals(w io.Writer, format string, v totalsView) error {
	if format == "json" {
		return writeJSON(w, v)
	}
	t := newTable("Subtotal", "Discount", "Tax", "Total").
		Row(v.Subtotal, v.Discount, v.Tax, v.Total)
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	if len(v.Milestones) == 0 {
		return nil
	}
	mt := newTable("Milestone", "Share", "Amount", "Status")
	for _, m := range v.Milestones {
		mt.Row(m.Type, m.Percentage, m.Amount, m.Status)
	}
	_, err := fmt.Fprintln(w, mt.Render())
	return err
}

func statusLine(w io.Writer, ok bool, msg string) {
	style := successStyle
	if !ok {
		style = warningStyle
	}
	fmt.Fprintln(w, style.Render(msg))
}
