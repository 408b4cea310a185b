package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name      string
		column    string
		direction string
		want      string
	}{
		{"defaults to newest first", "", "", "created_at DESC"},
		{"allowed column ascending", "total_cents", "asc", "total_cents ASC"},
		{"direction is case-insensitive and trimmed", " customer_name ", "  ASC ", "customer_name ASC"},
		{"explicit desc", "event_date", "desc", "event_date DESC"},
		{"unknown column falls back", "password", "asc", "created_at ASC"},
		{"injection in column", "total_cents; DROP TABLE invoices", "asc", "created_at ASC"},
		{"injection in direction", "status", "ASC; DROP TABLE invoices;--", "status DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.column, tt.direction, invoiceSortColumns, "created_at"))
		})
	}
}
