package invoicing

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// CategoryOrigin tells whether a line item was produced by menu/package
// configuration or added by hand.
type CategoryOrigin string

const (
	OriginAutoGenerated CategoryOrigin = "auto"
	OriginCustom        CategoryOrigin = "custom"
)

var autoGeneratedCategories = map[string]struct{}{
	"package":    {},
	"proteins":   {},
	"sides":      {},
	"appetizers": {},
	"desserts":   {},
	"dietary":    {},
	"service":    {},
	"supplies":   {},
	"equipment":  {},
	"beverages":  {},
}

// AutoGeneratedCategories returns the closed set of generated labels, sorted
func AutoGeneratedCategories() []string {
	labels := lo.Keys(autoGeneratedCategories)
	sort.Strings(labels)
	return labels
}

// IsAutoGeneratedCategory reports whether category belongs to the generated
// set. Comparison is case-insensitive; no trimming is applied.
func IsAutoGeneratedCategory(category string) bool {
	_, ok := autoGeneratedCategories[strings.ToLower(category)]
	return ok
}

// ClassifyCategory maps a category tag to its origin
func ClassifyCategory(category string) CategoryOrigin {
	if IsAutoGeneratedCategory(category) {
		return OriginAutoGenerated
	}
	return OriginCustom
}

// PartitionByOrigin splits items into generated and custom, keeping order
func PartitionByOrigin(items []LineItem) (auto []LineItem, custom []LineItem) {
	isAuto := func(item LineItem, _ int) bool {
		return IsAutoGeneratedCategory(item.Category)
	}
	return lo.Filter(items, isAuto), lo.Reject(items, isAuto)
}
