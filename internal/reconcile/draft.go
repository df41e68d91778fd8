package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoNamedItems blocks a finalize when the draft has no item with a
// non-empty name and the user has not explicitly confirmed.
var ErrNoNamedItems = errors.New("draft has no named items")

// ErrInvalidRate rejects a VAT rate that is not one of the fixed bands.
var ErrInvalidRate = errors.New("vat rate is not a valid band")

// MismatchChoice is the user's explicit resolution of a declared-total
// discrepancy.
type MismatchChoice string

const (
	ChoiceUseItemsSum  MismatchChoice = "use_items_sum"
	ChoiceKeepDeclared MismatchChoice = "keep_declared"
)

// ReceiptDraft is the in-memory reconciliation target for one receipt under
// review. Operations are value semantics: every edit returns a new draft
// with derived totals recomputed, so a draft is always internally
// consistent. A draft belongs to a single editing session and is never
// mutated concurrently.
type ReceiptDraft struct {
	StoreName        string                       `json:"store_name"`
	PurchaseDate     string                       `json:"purchase_date"`
	DeclaredTotal    decimal.Decimal              `json:"declared_total"`
	Notes            string                       `json:"notes"`
	Items            []LineItem                   `json:"items"`
	ComputedTotalVAT decimal.Decimal              `json:"computed_total_vat"`
	VATBreakdown     map[RateBand]decimal.Decimal `json:"vat_breakdown"`

	// MismatchAccepted records a keep_declared resolution so a resolved
	// warning does not resurface on reload.
	MismatchAccepted bool `json:"mismatch_accepted"`
}

// NewDraft builds a draft from raw extraction output. Every item passes
// through the normalizer; the declared total and date are coerced the same
// way as item fields.
func NewDraft(storeName, purchaseDate string, declaredTotal any, rawItems []map[string]any) ReceiptDraft {
	items := make([]LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		items = append(items, NormalizeItem(raw))
	}
	d := ReceiptDraft{
		StoreName:     strings.TrimSpace(storeName),
		PurchaseDate:  normalizeDate(purchaseDate),
		DeclaredTotal: clampNonNegative(round2(ParseDecimalOrDefault(declaredTotal, decimal.Zero))),
		Items:         items,
	}
	return d.recompute()
}

// normalizeDate coerces a date string to YYYY-MM-DD, defaulting to today.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().Format("2006-01-02")
	}
	formats := []string{"2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006", "02-01-2006"}
	for _, format := range formats {
		if d, err := time.Parse(format, raw); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return time.Now().Format("2006-01-02")
}

// Aggregate sums VAT amounts across items, grouped by rate band. All three
// band keys are always present in the breakdown.
func Aggregate(items []LineItem) (decimal.Decimal, map[RateBand]decimal.Decimal) {
	total := decimal.Zero
	breakdown := map[RateBand]decimal.Decimal{
		RateBandZero:     decimal.Zero,
		RateBandReduced:  decimal.Zero,
		RateBandStandard: decimal.Zero,
	}
	for _, item := range items {
		total = total.Add(item.VATAmount)
		band := item.RateBand()
		breakdown[band] = breakdown[band].Add(item.VATAmount)
	}
	return total, breakdown
}

// recompute refreshes the draft-level VAT aggregates. Item-level totals are
// recomputed by the item operations before this runs.
func (d ReceiptDraft) recompute() ReceiptDraft {
	d.ComputedTotalVAT, d.VATBreakdown = Aggregate(d.Items)
	return d
}

// cloneItems copies the item slice so edits never alias a previous draft
// value.
func (d ReceiptDraft) cloneItems() []LineItem {
	items := make([]LineItem, len(d.Items))
	copy(items, d.Items)
	return items
}

func (d ReceiptDraft) checkIndex(index int) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("item index %d out of range (0..%d)", index, len(d.Items)-1)
	}
	return nil
}

// SetStoreName returns a draft with the store name replaced.
func (d ReceiptDraft) SetStoreName(name string) ReceiptDraft {
	d.StoreName = strings.TrimSpace(name)
	return d
}

// SetPurchaseDate returns a draft with the purchase date replaced. An
// unparseable date leaves the existing value untouched.
func (d ReceiptDraft) SetPurchaseDate(raw string) ReceiptDraft {
	raw = strings.TrimSpace(raw)
	if _, err := time.Parse("2006-01-02", raw); err == nil {
		d.PurchaseDate = raw
	}
	return d
}

// SetDeclaredTotal returns a draft with the declared total replaced and the
// mismatch resolution reset, since the comparison baseline changed.
func (d ReceiptDraft) SetDeclaredTotal(value any) ReceiptDraft {
	d.DeclaredTotal = clampNonNegative(round2(ParseDecimalOrDefault(value, d.DeclaredTotal)))
	d.MismatchAccepted = false
	return d
}

// SetNotes returns a draft with the notes replaced.
func (d ReceiptDraft) SetNotes(notes string) ReceiptDraft {
	d.Notes = notes
	return d
}

// SetItemField applies a component-field edit to one item and recomputes its
// total, VAT and the draft aggregates.
func (d ReceiptDraft) SetItemField(index int, field ItemField, value any) (ReceiptDraft, error) {
	if err := d.checkIndex(index); err != nil {
		return d, err
	}
	items := d.cloneItems()
	items[index] = RecomputeItem(items[index], field, value)
	d.Items = items
	return d.recompute(), nil
}

// OverrideItemTotal sets an item's total price directly. The override wins
// until the next component edit triggers a recompute; VAT is refreshed from
// the overridden total immediately.
func (d ReceiptDraft) OverrideItemTotal(index int, value any) (ReceiptDraft, error) {
	if err := d.checkIndex(index); err != nil {
		return d, err
	}
	items := d.cloneItems()
	item := items[index]
	item.TotalPrice = round2(clampNonNegative(ParseDecimalOrDefault(value, item.TotalPrice)))
	items[index] = item.markEdited().recomputeVAT()
	d.Items = items
	return d.recompute(), nil
}

// SetItemRate applies an explicit VAT rate override chosen from the band
// selector. Off-band rates are rejected rather than coerced.
func (d ReceiptDraft) SetItemRate(index int, rate any) (ReceiptDraft, error) {
	if err := d.checkIndex(index); err != nil {
		return d, err
	}
	parsed := ParseDecimalOrDefault(rate, decimal.NewFromInt(-1))
	if _, ok := BandForRate(parsed); !ok {
		return d, ErrInvalidRate
	}
	items := d.cloneItems()
	items[index] = AssignRate(items[index], &parsed).markEdited()
	d.Items = items
	return d.recompute(), nil
}

// QuantityBlur runs the quantity-recovery heuristic on one item after its
// edit session ends.
func (d ReceiptDraft) QuantityBlur(index int) (ReceiptDraft, error) {
	if err := d.checkIndex(index); err != nil {
		return d, err
	}
	items := d.cloneItems()
	items[index] = NormalizeQuantityOnBlur(items[index])
	d.Items = items
	return d.recompute(), nil
}

// AddItem appends an empty manual line: quantity 1, zero prices, zero rate,
// uncategorised.
func (d ReceiptDraft) AddItem() ReceiptDraft {
	item := LineItem{
		Category:      CategoryOther,
		Quantity:      defaultQuantity,
		ApprovalState: ApprovalManualAdd,
	}
	d.Items = append(d.cloneItems(), item.recomputeTotal())
	return d.recompute()
}

// RemoveItem deletes one item from the draft.
func (d ReceiptDraft) RemoveItem(index int) (ReceiptDraft, error) {
	if err := d.checkIndex(index); err != nil {
		return d, err
	}
	items := d.cloneItems()
	d.Items = append(items[:index], items[index+1:]...)
	return d.recompute(), nil
}

// Reconcile cross-checks the item sum against the declared total. An
// accepted keep_declared resolution suppresses the warning.
func (d ReceiptDraft) Reconcile() ReconcileResult {
	result := ReconcileReceiptTotal(d.Items, d.DeclaredTotal)
	if d.MismatchAccepted {
		result.Mismatch = false
	}
	return result
}

// Resolve applies the user's explicit mismatch choice: overwrite the
// declared total with the items sum, or keep the declared total and accept
// the discrepancy.
func (d ReceiptDraft) Resolve(choice MismatchChoice) (ReceiptDraft, error) {
	switch choice {
	case ChoiceUseItemsSum:
		d.DeclaredTotal = d.Reconcile().ItemsSum
		d.MismatchAccepted = false
		return d, nil
	case ChoiceKeepDeclared:
		d.MismatchAccepted = true
		return d, nil
	default:
		return d, fmt.Errorf("unknown mismatch choice: %q", choice)
	}
}

// Finalize prepares the draft for persistence: any remaining pending items
// are coerced to approved. A draft with zero named items needs explicit
// confirmation, otherwise the save is blocked.
func (d ReceiptDraft) Finalize(confirmEmpty bool) (ReceiptDraft, error) {
	named := 0
	for _, item := range d.Items {
		if strings.TrimSpace(item.Name) != "" {
			named++
		}
	}
	if named == 0 && !confirmEmpty {
		return d, ErrNoNamedItems
	}
	items := d.cloneItems()
	for i, item := range items {
		if item.ApprovalState == ApprovalPending {
			item.ApprovalState = ApprovalApproved
			items[i] = item
		}
	}
	d.Items = items
	return d.recompute(), nil
}
