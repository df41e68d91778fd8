package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var defaultQuantity = decimal.NewFromInt(1)

// NormalizeItem converts a raw extracted line item into a fully-populated
// LineItem. Every numeric field is coerced through ParseDecimalOrDefault
// before any arithmetic happens: quantity defaults to 1, monetary fields to
// 0. The input map is not mutated and the function never fails.
func NormalizeItem(raw map[string]any) LineItem {
	item := LineItem{
		Name:            stringField(raw, "name"),
		Category:        ParseCategory(stringField(raw, "category")),
		Quantity:        ParseDecimalOrDefault(raw["quantity"], defaultQuantity),
		UnitPrice:       clampNonNegative(ParseDecimalOrDefault(raw["unit_price"], decimal.Zero)),
		DiscountApplied: clampNonNegative(ParseDecimalOrDefault(raw["discount_applied"], decimal.Zero)),
		PackSize:        ParseDecimalOrDefault(raw["pack_size_value"], decimal.Zero),
		Confidence:      ParseDecimalOrDefault(raw["confidence_score"], decimal.Zero),
		VATRate:         normalizeRate(raw["vat_rate"]),
		ApprovalState:   ApprovalPending,
	}

	item = item.recomputeTotal()

	// OCR sometimes reads the line total but not a legible unit price. When
	// the components multiply out to zero and the extractor supplied a
	// positive total, trust the extracted total.
	rawTotal := ParseDecimalOrDefault(raw["total_price"], decimal.Zero)
	if item.TotalPrice.IsZero() && rawTotal.IsPositive() {
		item.TotalPrice = round2(rawTotal)
		item = item.recomputeVAT()
	}

	return item
}

// normalizeRate coerces an extracted VAT rate onto the fixed band table.
// Unparseable or off-band rates fall back to zero: most UK grocery lines are
// zero-rated, and the review UI's rate selector is the correction path.
func normalizeRate(raw any) decimal.Decimal {
	rate := ParseDecimalOrDefault(raw, decimal.Zero)
	if _, ok := BandForRate(rate); !ok {
		return decimal.Zero
	}
	return rate
}

// stringField pulls a trimmed string out of a raw extraction map, rendering
// stray numbers to text rather than dropping them.
func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64, int, int64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	default:
		return ""
	}
}
