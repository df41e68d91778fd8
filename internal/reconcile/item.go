package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RateBand identifies one of the three UK VAT bands. Displayed prices are
// tax-inclusive, so the band determines how much VAT is embedded in a total.
type RateBand string

const (
	RateBandZero     RateBand = "zero"     // 0%
	RateBandReduced  RateBand = "reduced"  // 5%
	RateBandStandard RateBand = "standard" // 20%
)

// RateBands lists the fixed bands in ascending rate order.
var RateBands = []RateBand{RateBandZero, RateBandReduced, RateBandStandard}

var bandRates = map[RateBand]decimal.Decimal{
	RateBandZero:     decimal.Zero,
	RateBandReduced:  decimal.NewFromInt(5),
	RateBandStandard: decimal.NewFromInt(20),
}

// Rate returns the percentage rate for a band.
func (b RateBand) Rate() decimal.Decimal {
	return bandRates[b]
}

// BandForRate maps a percentage rate to its band. The second return is false
// when the rate is not one of the fixed bands.
func BandForRate(rate decimal.Decimal) (RateBand, bool) {
	for _, band := range RateBands {
		if bandRates[band].Equal(rate) {
			return band, true
		}
	}
	return RateBandZero, false
}

// ApprovalState tracks how a line item entered the draft and whether the
// user has touched it since extraction.
type ApprovalState string

const (
	ApprovalPending   ApprovalState = "pending"
	ApprovalApproved  ApprovalState = "approved"
	ApprovalCorrected ApprovalState = "corrected"
	ApprovalManualAdd ApprovalState = "manual_add"
)

// Category is the fixed product category set shared with budgeting.
type Category string

const (
	CategoryProduce      Category = "produce"
	CategoryMeatFish     Category = "meat_fish"
	CategoryDairyEggs    Category = "dairy_eggs"
	CategoryBakery       Category = "bakery"
	CategoryPantry       Category = "pantry"
	CategoryFrozen       Category = "frozen"
	CategoryDrinks       Category = "drinks"
	CategorySnacks       Category = "snacks"
	CategoryHousehold    Category = "household"
	CategoryHealthBeauty Category = "health_beauty"
	CategoryBabyPet      Category = "baby_pet"
	CategoryOther        Category = "other"
)

// Categories lists all valid categories.
var Categories = []Category{
	CategoryProduce, CategoryMeatFish, CategoryDairyEggs, CategoryBakery,
	CategoryPantry, CategoryFrozen, CategoryDrinks, CategorySnacks,
	CategoryHousehold, CategoryHealthBeauty, CategoryBabyPet, CategoryOther,
}

// ParseCategory maps a raw extracted category string onto the fixed set,
// falling back to other.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Categories {
		if c == known {
			return known
		}
	}
	return CategoryOther
}

// LineItem is one product entry on a receipt draft. Monetary fields hold
// already-rounded two-decimal values; VATAmount is the tax embedded in the
// tax-inclusive TotalPrice.
type LineItem struct {
	Name            string          `json:"name"`
	Category        Category        `json:"category"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	PackSize        decimal.Decimal `json:"pack_size_value"`
	Confidence      decimal.Decimal `json:"confidence_score"`
	ApprovalState   ApprovalState   `json:"approval_state"`
}

// RateBand returns the band matching the item's rate. Rates are validated on
// the way in, so the lookup cannot miss outside of hand-built values.
func (i LineItem) RateBand() RateBand {
	band, _ := BandForRate(i.VATRate)
	return band
}

// ComputeVAT extracts the VAT embedded in a tax-inclusive total:
// round2(total * rate / (100 + rate)). A zero rate yields exactly zero.
func ComputeVAT(total, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() || total.IsZero() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return round2(total.Mul(rate).Div(hundred.Add(rate)))
}

// recomputeTotal rederives TotalPrice from quantity, unit price and discount,
// then refreshes the VAT amount.
func (i LineItem) recomputeTotal() LineItem {
	i.TotalPrice = round2(clampNonNegative(i.Quantity.Mul(i.UnitPrice).Sub(i.DiscountApplied)))
	return i.recomputeVAT()
}

// recomputeVAT refreshes the VAT amount from the current total and rate,
// leaving the total untouched (used after a direct total override).
func (i LineItem) recomputeVAT() LineItem {
	i.VATAmount = ComputeVAT(i.TotalPrice, i.VATRate)
	return i
}

// markEdited flips a pending or approved item to corrected. Manual additions
// stay manual_add through any number of edits.
func (i LineItem) markEdited() LineItem {
	if i.ApprovalState != ApprovalManualAdd {
		i.ApprovalState = ApprovalCorrected
	}
	return i
}

// AssignRate applies an explicit user-chosen rate, or keeps the item's
// existing rate when none is given. Category-based defaults come from the
// extraction collaborator; this never rederives them.
func AssignRate(item LineItem, explicitRate *decimal.Decimal) LineItem {
	if explicitRate != nil {
		item.VATRate = *explicitRate
	}
	return item.recomputeVAT()
}
