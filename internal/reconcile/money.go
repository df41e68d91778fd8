package reconcile

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalOrDefault coerces an arbitrary extracted value into a decimal.
// Extraction output is untrusted: numbers arrive as floats, quoted strings
// with currency symbols, json.Number, or garbage. Non-numeric, NaN and
// infinite values all fall back to def. Never panics, never errors.
func ParseDecimalOrDefault(value any, def decimal.Decimal) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return def
	case decimal.Decimal:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return decimal.NewFromFloat(v)
	case float32:
		return ParseDecimalOrDefault(float64(v), def)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return def
		}
		return d
	case string:
		s := strings.TrimSpace(v)
		s = strings.TrimPrefix(s, "£")
		s = strings.TrimPrefix(s, "$")
		s = strings.TrimPrefix(s, "€")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return def
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return def
		}
		return d
	default:
		return def
	}
}

// round2 rounds half-up to two decimal places. All monetary rounding happens
// at the point a total or VAT amount is computed, never at aggregation.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// clampNonNegative floors a decimal at zero.
func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
