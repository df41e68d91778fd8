package reconcile

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("RecomputeItem", func() {
	var item LineItem

	BeforeEach(func() {
		item = NormalizeItem(map[string]any{
			"name":             "Orange Juice 1L",
			"category":         "drinks",
			"quantity":         2,
			"unit_price":       1.50,
			"discount_applied": 0.50,
			"vat_rate":         20,
		})
	})

	It("rederives the total from the components", func() {
		// 2 * 1.50 - 0.50 = 2.50
		Expect(item.TotalPrice.StringFixed(2)).To(Equal("2.50"))
		Expect(item.VATAmount.StringFixed(2)).To(Equal("0.42"))
	})

	When("the quantity is edited", func() {
		var updated LineItem

		BeforeEach(func() {
			updated = RecomputeItem(item, FieldQuantity, 3)
		})

		It("recomputes the total", func() {
			Expect(updated.TotalPrice.StringFixed(2)).To(Equal("4.00"))
		})

		It("recomputes the VAT amount", func() {
			// 4.00*20/120 = 0.6666... -> 0.67
			Expect(updated.VATAmount.StringFixed(2)).To(Equal("0.67"))
		})

		It("marks the item corrected", func() {
			Expect(updated.ApprovalState).To(Equal(ApprovalCorrected))
		})
	})

	When("the edit value is malformed", func() {
		It("coerces quantity to the default 1", func() {
			updated := RecomputeItem(item, FieldQuantity, "???")
			Expect(updated.Quantity.StringFixed(2)).To(Equal("1.00"))
			Expect(updated.TotalPrice.StringFixed(2)).To(Equal("1.00"))
		})

		It("coerces prices to 0", func() {
			updated := RecomputeItem(item, FieldUnitPrice, nil)
			Expect(updated.UnitPrice.IsZero()).To(BeTrue())
			Expect(updated.TotalPrice.IsZero()).To(BeTrue())
		})
	})

	When("the discount exceeds the gross total", func() {
		It("clamps the total at zero", func() {
			updated := RecomputeItem(item, FieldDiscountApplied, 10.00)
			Expect(updated.TotalPrice.IsZero()).To(BeTrue())
			Expect(updated.VATAmount.IsZero()).To(BeTrue())
		})
	})

	When("the item is a manual addition", func() {
		It("stays manual_add through edits", func() {
			item.ApprovalState = ApprovalManualAdd
			updated := RecomputeItem(item, FieldName, "Renamed")
			Expect(updated.ApprovalState).To(Equal(ApprovalManualAdd))
		})
	})
})

var _ = Describe("NormalizeQuantityOnBlur", func() {
	When("the quantity is zero but a total is present", func() {
		It("resets quantity to 1 and back-derives the unit price", func() {
			item := LineItem{
				Name:       "Flat Total Line",
				Quantity:   decimal.Zero,
				TotalPrice: decimal.NewFromFloat(9.00),
			}
			recovered := NormalizeQuantityOnBlur(item)
			Expect(recovered.Quantity.StringFixed(2)).To(Equal("1.00"))
			Expect(recovered.UnitPrice.StringFixed(2)).To(Equal("9.00"))
			Expect(recovered.TotalPrice.StringFixed(2)).To(Equal("9.00"))
		})
	})

	When("the quantity is negative", func() {
		It("recovers the same way", func() {
			item := LineItem{
				Quantity:   decimal.NewFromInt(-2),
				TotalPrice: decimal.NewFromFloat(3.20),
			}
			recovered := NormalizeQuantityOnBlur(item)
			Expect(recovered.Quantity.StringFixed(2)).To(Equal("1.00"))
			Expect(recovered.UnitPrice.StringFixed(2)).To(Equal("3.20"))
		})
	})

	When("the quantity is already positive", func() {
		It("leaves the item untouched", func() {
			item := NormalizeItem(map[string]any{
				"name":       "Fine Line",
				"quantity":   2,
				"unit_price": 1.00,
			})
			Expect(NormalizeQuantityOnBlur(item)).To(Equal(item))
		})
	})
})

var _ = Describe("ReconcileReceiptTotal", func() {
	items := func(totals ...float64) []LineItem {
		out := make([]LineItem, 0, len(totals))
		for _, t := range totals {
			out = append(out, LineItem{TotalPrice: decimal.NewFromFloat(t)})
		}
		return out
	}

	It("sums the item totals", func() {
		result := ReconcileReceiptTotal(items(1.10, 2.20, 3.30), decimal.NewFromFloat(6.60))
		Expect(result.ItemsSum.StringFixed(2)).To(Equal("6.60"))
		Expect(result.Mismatch).To(BeFalse())
	})

	It("flags a mismatch beyond the tolerance", func() {
		result := ReconcileReceiptTotal(items(48.30), decimal.NewFromFloat(50.00))
		Expect(result.Mismatch).To(BeTrue())
	})

	It("tolerates a difference of exactly 1.00", func() {
		result := ReconcileReceiptTotal(items(49.00), decimal.NewFromFloat(50.00))
		Expect(result.Mismatch).To(BeFalse())
	})

	It("never flags when the declared total is zero", func() {
		result := ReconcileReceiptTotal(items(48.30), decimal.Zero)
		Expect(result.Mismatch).To(BeFalse())
	})

	It("never flags when the items sum is zero", func() {
		result := ReconcileReceiptTotal(nil, decimal.NewFromFloat(50.00))
		Expect(result.Mismatch).To(BeFalse())
	})
})
