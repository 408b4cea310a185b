package persistence

import "strings"

// invoiceSortColumns are the columns an invoice list may be ordered by
var invoiceSortColumns = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"customer_name":  true,
	"event_date":     true,
	"status":         true,
	"total_cents":    true,
}

// orderClause builds an ORDER BY clause from user input. Columns outside
// allowed fall back to def, and any direction other than asc is DESC, so
// the result is always safe to splice into SQL.
func orderClause(column, direction string, allowed map[string]bool, def string) string {
	column = strings.TrimSpace(column)
	if !allowed[column] {
		column = def
	}
	if strings.EqualFold(strings.TrimSpace(direction), "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}
