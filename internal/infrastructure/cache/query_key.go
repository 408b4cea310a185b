package cache

import (
	"strings"

	"github.com/google/uuid"
)

// QueryKey addresses a cached view. Keys are hierarchical: invalidating a
// key also invalidates every key it is a segment prefix of.
type QueryKey []string

// Key builds a QueryKey from segments
func Key(segments ...string) QueryKey {
	return QueryKey(segments)
}

func (k QueryKey) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether prefix matches k segment by segment
func (k QueryKey) HasPrefix(prefix QueryKey) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Overlaps reports whether either key is a prefix of the other
func (k QueryKey) Overlaps(other QueryKey) bool {
	return k.HasPrefix(other) || other.HasPrefix(k)
}

func parseKey(s string) QueryKey {
	if s == "" {
		return QueryKey{}
	}
	return QueryKey(strings.Split(s, "/"))
}

// Views that depend on an invoice's line items.

func InvoiceKey(invoiceID uuid.UUID) QueryKey {
	return Key("invoice", invoiceID.String())
}

func InvoiceListKey() QueryKey {
	return Key("invoices")
}

func LineItemsKey(invoiceID uuid.UUID) QueryKey {
	return Key("invoice-line-items", invoiceID.String())
}

func EventsKey() QueryKey {
	return Key("events")
}

func QuotesKey() QueryKey {
	return Key("quotes")
}

func MilestonesKey(invoiceID uuid.UUID) QueryKey {
	return Key("payment-milestones", invoiceID.String())
}

func InvoiceWithMilestonesKey(invoiceID uuid.UUID) QueryKey {
	return Key("invoice-with-milestones", invoiceID.String())
}
