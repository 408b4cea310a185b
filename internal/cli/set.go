package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fieldEdit is one --set argument: <item>:<field>=<value>
type fieldEdit struct {
	Item  string
	Field string
	Value string
}

func parseFieldEdit(arg string) (fieldEdit, error) {
	item, rest, ok := strings.Cut(arg, ":")
	if !ok || strings.TrimSpace(item) == "" {
		return fieldEdit{}, fmt.Errorf("invalid --set %q: want <item>:<field>=<value>", arg)
	}
	field, value, ok := strings.Cut(rest, "=")
	if !ok || strings.TrimSpace(field) == "" {
		return fieldEdit{}, fmt.Errorf("invalid --set %q: want <item>:<field>=<value>", arg)
	}
	return fieldEdit{
		Item:  strings.TrimSpace(item),
		Field: strings.ToLower(strings.TrimSpace(field)),
		Value: value,
	}, nil
}

// resolveItem finds the item an edit refers to, by 1-based position in
// display order or by id
func resolveItem(items []invoicing.LineItem, ref string) (uuid.UUID, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items) {
			return uuid.Nil, fmt.Errorf("item %d out of range: invoice has %d items", n, len(items))
		}
		return items[n-1].ID, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("item %q is neither a position nor an id", ref)
	}
	for _, item := range items {
		if item.ID == id {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("item %s is not on this invoice", id)
}

// mergePatches folds several single-field patches into one; later fields win
func mergePatches(patches ...invoicing.LineItemPatch) invoicing.LineItemPatch {
	var out invoicing.LineItemPatch
	for _, p := range patches {
		if p.Title != nil {
			out.Title = p.Title
		}
		if p.Description != nil {
			out.Description = p.Description
		}
		if p.Quantity != nil {
			out.Quantity = p.Quantity
		}
		if p.UnitPriceCents != nil {
			out.UnitPriceCents = p.UnitPriceCents
		}
		if p.Category != nil {
			out.Category = p.Category
		}
		if p.SortOrder != nil {
			out.SortOrder = p.SortOrder
		}
	}
	return out
}

// toPatch converts an edit to a single-field patch
func (e fieldEdit) toPatch() (invoicing.LineItemPatch, error) {
	var patch invoicing.LineItemPatch
	switch e.Field {
	case "qty", "quantity":
		qty, err := strconv.Atoi(strings.TrimSpace(e.Value))
		if err != nil || qty < 0 {
			return patch, fmt.Errorf("quantity must be a whole number >= 0, got %q", e.Value)
		}
		patch.Quantity = &qty
	case "price", "unit_price":
		cents, err := parseDollars(e.Value)
		if err != nil {
			return patch, err
		}
		patch.UnitPriceCents = &cents
	case "price_cents", "unit_price_cents":
		cents, err := strconv.ParseInt(strings.TrimSpace(e.Value), 10, 64)
		if err != nil || cents < 0 {
			return patch, fmt.Errorf("price in cents must be a whole number >= 0, got %q", e.Value)
		}
		patch.UnitPriceCents = &cents
	case "title":
		title := strings.TrimSpace(e.Value)
		if title == "" {
			return patch, fmt.Errorf("title cannot be empty")
		}
		patch.Title = &title
	case "description":
		patch.Description = &e.Value
	case "category":
		category := strings.TrimSpace(e.Value)
		patch.Category = &category
	default:
		return patch, fmt.Errorf("unknown field %q: use qty, price, price_cents, title, description or category", e.Field)
	}
	return patch, nil
}

// parseDollars reads an amount like "12.5" or "$1,250.00" as cents. More
// than two decimals is rejected rather than rounded.
func parseDollars(s string) (int64, error) {
	clean := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount cannot be negative, got %q", s)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	return cents.IntPart(), nil
}

// formatCents renders cents as dollars
func formatCents(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}
