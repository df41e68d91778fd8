package reconcile

import (
	"github.com/shopspring/decimal"
)

// ItemField names an editable component field on a line item. Editing any of
// these triggers a total recompute; a direct total override goes through
// OverrideItemTotal instead.
type ItemField string

const (
	FieldName            ItemField = "name"
	FieldCategory        ItemField = "category"
	FieldQuantity        ItemField = "quantity"
	FieldUnitPrice       ItemField = "unit_price"
	FieldDiscountApplied ItemField = "discount_applied"
)

// mismatchTolerance is the absolute currency-unit tolerance before a
// declared-total discrepancy is flagged.
var mismatchTolerance = decimal.NewFromInt(1)

// RecomputeItem applies a single field edit, marks the item corrected, and
// rederives total and VAT from the components. Malformed values coerce to
// the normalizer defaults (quantity 1, prices 0); unknown fields leave the
// item unchanged apart from the recompute.
func RecomputeItem(item LineItem, field ItemField, value any) LineItem {
	switch field {
	case FieldName:
		if s, ok := value.(string); ok {
			item.Name = s
		}
	case FieldCategory:
		if s, ok := value.(string); ok {
			item.Category = ParseCategory(s)
		}
	case FieldQuantity:
		item.Quantity = ParseDecimalOrDefault(value, defaultQuantity)
	case FieldUnitPrice:
		item.UnitPrice = clampNonNegative(ParseDecimalOrDefault(value, decimal.Zero))
	case FieldDiscountApplied:
		item.DiscountApplied = clampNonNegative(ParseDecimalOrDefault(value, decimal.Zero))
	}
	return item.markEdited().recomputeTotal()
}

// NormalizeQuantityOnBlur recovers a sane unit price when an edit session
// ends with a missing, zero or negative quantity: quantity resets to 1 and
// the unit price is back-derived from the observed total. The discount is
// folded away so the total survives the recompute. This is a recovery
// heuristic for flat-total lines, not a general rule; multi-unit offers keep
// their observed total.
func NormalizeQuantityOnBlur(item LineItem) LineItem {
	if item.Quantity.IsPositive() {
		return item
	}
	item.Quantity = defaultQuantity
	item.UnitPrice = item.TotalPrice
	item.DiscountApplied = decimal.Zero
	return item.markEdited().recomputeTotal()
}

// ReconcileResult reports the item-sum cross-check against the receipt's
// declared total.
type ReconcileResult struct {
	ItemsSum decimal.Decimal `json:"items_sum"`
	Mismatch bool            `json:"mismatch"`
}

// ReconcileReceiptTotal sums the item totals and flags a mismatch when the
// difference from the declared total exceeds the tolerance. Both values must
// be strictly positive for a flag; empty or zeroed receipts never warn.
// Resolution is always an explicit user choice, never silent.
func ReconcileReceiptTotal(items []LineItem, declaredTotal decimal.Decimal) ReconcileResult {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.TotalPrice)
	}
	mismatch := sum.IsPositive() &&
		declaredTotal.IsPositive() &&
		sum.Sub(declaredTotal).Abs().GreaterThan(mismatchTolerance)
	return ReconcileResult{ItemsSum: sum, Mismatch: mismatch}
}
