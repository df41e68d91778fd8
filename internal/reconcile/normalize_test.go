package reconcile

import (
	"encoding/json"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("ParseDecimalOrDefault", func() {
	var def = decimal.NewFromInt(7)

	It("passes through float values", func() {
		Expect(ParseDecimalOrDefault(2.5, def).StringFixed(2)).To(Equal("2.50"))
	})

	It("parses numeric strings", func() {
		Expect(ParseDecimalOrDefault("3.49", def).StringFixed(2)).To(Equal("3.49"))
	})

	It("strips currency symbols and thousands separators", func() {
		Expect(ParseDecimalOrDefault("£1,250.00", def).StringFixed(2)).To(Equal("1250.00"))
	})

	It("parses json.Number values", func() {
		Expect(ParseDecimalOrDefault(json.Number("0.42"), def).StringFixed(2)).To(Equal("0.42"))
	})

	It("parses integer values", func() {
		Expect(ParseDecimalOrDefault(3, def).StringFixed(2)).To(Equal("3.00"))
	})

	It("returns the default for nil", func() {
		Expect(ParseDecimalOrDefault(nil, def).Equal(def)).To(BeTrue())
	})

	It("returns the default for non-numeric strings", func() {
		Expect(ParseDecimalOrDefault("abc", def).Equal(def)).To(BeTrue())
	})

	It("returns the default for empty strings", func() {
		Expect(ParseDecimalOrDefault("   ", def).Equal(def)).To(BeTrue())
	})

	It("returns the default for NaN", func() {
		Expect(ParseDecimalOrDefault(math.NaN(), def).Equal(def)).To(BeTrue())
	})

	It("returns the default for infinity", func() {
		Expect(ParseDecimalOrDefault(math.Inf(1), def).Equal(def)).To(BeTrue())
	})

	It("returns the default for unexpected types", func() {
		Expect(ParseDecimalOrDefault([]string{"1"}, def).Equal(def)).To(BeTrue())
		Expect(ParseDecimalOrDefault(true, def).Equal(def)).To(BeTrue())
	})
})

var _ = Describe("NormalizeItem", func() {
	var (
		raw  map[string]any
		item LineItem
	)

	JustBeforeEach(func() {
		item = NormalizeItem(raw)
	})

	When("every field is well-formed", func() {
		BeforeEach(func() {
			raw = map[string]any{
				"name":             "  Semi Skimmed Milk 2L ",
				"category":         "dairy_eggs",
				"quantity":         2.0,
				"unit_price":       1.45,
				"discount_applied": 0.20,
				"vat_rate":         0.0,
				"pack_size_value":  2.0,
				"confidence_score": 0.97,
			}
		})

		It("trims the name", func() {
			Expect(item.Name).To(Equal("Semi Skimmed Milk 2L"))
		})

		It("keeps the category", func() {
			Expect(item.Category).To(Equal(CategoryDairyEggs))
		})

		It("computes the total from components", func() {
			Expect(item.TotalPrice.StringFixed(2)).To(Equal("2.70"))
		})

		It("starts in the pending state", func() {
			Expect(item.ApprovalState).To(Equal(ApprovalPending))
		})
	})

	When("every numeric field is malformed", func() {
		BeforeEach(func() {
			raw = map[string]any{
				"name":             "Mystery Item",
				"quantity":         "abc",
				"unit_price":       nil,
				"discount_applied": nil,
			}
		})

		It("defaults quantity to 1", func() {
			Expect(item.Quantity.StringFixed(2)).To(Equal("1.00"))
		})

		It("defaults unit price to 0", func() {
			Expect(item.UnitPrice.IsZero()).To(BeTrue())
		})

		It("defaults discount to 0", func() {
			Expect(item.DiscountApplied.IsZero()).To(BeTrue())
		})

		It("yields a zero total", func() {
			Expect(item.TotalPrice.IsZero()).To(BeTrue())
		})
	})

	When("the unit price is illegible but a line total was extracted", func() {
		BeforeEach(func() {
			raw = map[string]any{
				"name":        "Bananas Loose",
				"category":    "produce",
				"quantity":    1,
				"unit_price":  nil,
				"total_price": 0.89,
			}
		})

		It("keeps the extracted total", func() {
			Expect(item.TotalPrice.StringFixed(2)).To(Equal("0.89"))
		})
	})

	When("the extracted total is negative garbage", func() {
		BeforeEach(func() {
			raw = map[string]any{
				"name":        "Eggs",
				"quantity":    1,
				"unit_price":  0,
				"total_price": -4.50,
			}
		})

		It("ignores it and keeps the computed zero total", func() {
			Expect(item.TotalPrice.IsZero()).To(BeTrue())
		})
	})

	When("the category is unknown", func() {
		BeforeEach(func() {
			raw = map[string]any{"name": "Thing", "category": "widgets"}
		})

		It("falls back to other", func() {
			Expect(item.Category).To(Equal(CategoryOther))
		})
	})

	When("the VAT rate is off-band", func() {
		BeforeEach(func() {
			raw = map[string]any{"name": "Crisps", "vat_rate": 17.5}
		})

		It("falls back to the zero band", func() {
			Expect(item.VATRate.IsZero()).To(BeTrue())
		})
	})

	When("the VAT rate is a valid band", func() {
		BeforeEach(func() {
			raw = map[string]any{
				"name":       "Lager 4-pack",
				"quantity":   1,
				"unit_price": 6.00,
				"vat_rate":   20,
			}
		})

		It("keeps the rate", func() {
			Expect(item.VATRate.StringFixed(0)).To(Equal("20"))
		})

		It("extracts the embedded VAT", func() {
			Expect(item.VATAmount.StringFixed(2)).To(Equal("1.00"))
		})
	})

	When("negative prices are supplied", func() {
		BeforeEach(func() {
			raw = map[string]any{
				"name":             "Refund Line",
				"quantity":         1,
				"unit_price":       -2.00,
				"discount_applied": -1.00,
			}
		})

		It("clamps them to zero", func() {
			Expect(item.UnitPrice.IsZero()).To(BeTrue())
			Expect(item.DiscountApplied.IsZero()).To(BeTrue())
		})
	})
})
