package budget

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/fernwood/grocer-ledger/internal/reconcile"
)

var _ = Describe("ParseMonth", func() {
	It("accepts a YYYY-MM month", func() {
		month, err := ParseMonth("2026-08")
		Expect(err).NotTo(HaveOccurred())
		Expect(month).To(Equal("2026-08"))
	})

	It("rejects a full date", func() {
		_, err := ParseMonth("2026-08-14")
		Expect(err).To(HaveOccurred())
	})

	It("rejects garbage", func() {
		_, err := ParseMonth("August 2026")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Summarize", func() {
	var (
		lines   []Line
		budgets []Budget
		summary Summary
	)

	amount := func(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

	JustBeforeEach(func() {
		summary = Summarize("2026-08", lines, budgets)
	})

	When("there is spend across categories", func() {
		BeforeEach(func() {
			lines = []Line{
				{Category: reconcile.CategoryProduce, Amount: amount(12.40)},
				{Category: reconcile.CategoryProduce, Amount: amount(3.10)},
				{Category: reconcile.CategoryDrinks, Amount: amount(8.00)},
			}
			budgets = []Budget{
				{Category: reconcile.CategoryProduce, MonthlyLimit: amount(40.00)},
			}
		})

		It("totals all spend", func() {
			Expect(summary.TotalSpent.StringFixed(2)).To(Equal("23.50"))
		})

		It("groups spend by category", func() {
			Expect(summary.Categories).To(HaveLen(2))
			Expect(summary.Categories[0].Category).To(Equal(reconcile.CategoryProduce))
			Expect(summary.Categories[0].Spent.StringFixed(2)).To(Equal("15.50"))
		})

		It("reports remaining budget", func() {
			Expect(summary.Categories[0].Remaining.StringFixed(2)).To(Equal("24.50"))
			Expect(summary.Categories[0].OverBudget).To(BeFalse())
		})

		It("lists unbudgeted spend without a limit", func() {
			Expect(summary.Categories[1].Category).To(Equal(reconcile.CategoryDrinks))
			Expect(summary.Categories[1].Limit.IsZero()).To(BeTrue())
			Expect(summary.Categories[1].OverBudget).To(BeFalse())
		})
	})

	When("spend exceeds the limit", func() {
		BeforeEach(func() {
			lines = []Line{{Category: reconcile.CategorySnacks, Amount: amount(25.00)}}
			budgets = []Budget{{Category: reconcile.CategorySnacks, MonthlyLimit: amount(20.00)}}
		})

		It("flags the category over budget", func() {
			Expect(summary.Categories).To(HaveLen(1))
			Expect(summary.Categories[0].OverBudget).To(BeTrue())
			Expect(summary.Categories[0].Remaining.StringFixed(2)).To(Equal("-5.00"))
		})
	})

	When("a budget exists with no spend", func() {
		BeforeEach(func() {
			lines = nil
			budgets = []Budget{{Category: reconcile.CategoryHousehold, MonthlyLimit: amount(30.00)}}
		})

		It("still appears in the summary", func() {
			Expect(summary.Categories).To(HaveLen(1))
			Expect(summary.Categories[0].Spent.IsZero()).To(BeTrue())
			Expect(summary.Categories[0].Remaining.StringFixed(2)).To(Equal("30.00"))
		})
	})

	When("there is nothing at all", func() {
		BeforeEach(func() {
			lines = nil
			budgets = nil
		})

		It("returns an empty breakdown", func() {
			Expect(summary.TotalSpent.IsZero()).To(BeTrue())
			Expect(summary.Categories).To(BeEmpty())
		})
	})
})
