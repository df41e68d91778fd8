package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fernwood/grocer-ledger/internal/reconcile"
)

// Budget is a monthly spending limit for one product category.
type Budget struct {
	Category     reconcile.Category `json:"category"`
	MonthlyLimit decimal.Decimal    `json:"monthly_limit"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Line is one unit of categorised spend feeding a summary, taken from a
// finalized receipt line item.
type Line struct {
	Category reconcile.Category
	Amount   decimal.Decimal
}

// CategorySpend compares spend against the budget for one category.
type CategorySpend struct {
	Category   reconcile.Category `json:"category"`
	Spent      decimal.Decimal    `json:"spent"`
	Limit      decimal.Decimal    `json:"limit"`
	Remaining  decimal.Decimal    `json:"remaining"`
	OverBudget bool               `json:"over_budget"`
}

// Summary is the monthly spending view: total spend plus per-category
// breakdown against budgets.
type Summary struct {
	Month      string          `json:"month"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Categories []CategorySpend `json:"categories"`
}

// ParseMonth validates a YYYY-MM month string.
func ParseMonth(raw string) (string, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return "", fmt.Errorf("invalid month %q (expected YYYY-MM): %w", raw, err)
	}
	return t.Format("2006-01"), nil
}

// Summarize aggregates spend lines by category and compares against budgets.
// Categories appear in the fixed category order; only categories with spend
// or a configured budget are included.
func Summarize(month string, lines []Line, budgets []Budget) Summary {
	spent := make(map[reconcile.Category]decimal.Decimal)
	total := decimal.Zero
	for _, line := range lines {
		spent[line.Category] = spent[line.Category].Add(line.Amount)
		total = total.Add(line.Amount)
	}

	limits := make(map[reconcile.Category]decimal.Decimal)
	for _, b := range budgets {
		limits[b.Category] = b.MonthlyLimit
	}

	categories := make([]CategorySpend, 0, len(spent))
	for _, category := range reconcile.Categories {
		amount, hasSpend := spent[category]
		limit, hasBudget := limits[category]
		if !hasSpend && !hasBudget {
			continue
		}
		cs := CategorySpend{
			Category: category,
			Spent:    amount,
			Limit:    limit,
		}
		if hasBudget {
			cs.Remaining = limit.Sub(amount)
			cs.OverBudget = amount.GreaterThan(limit)
		}
		categories = append(categories, cs)
	}

	return Summary{
		Month:      month,
		TotalSpent: total,
		Categories: categories,
	}
}
