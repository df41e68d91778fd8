package receipt

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fernwood/grocer-ledger/internal/budget"
	"github.com/fernwood/grocer-ledger/internal/reconcile"
	"github.com/fernwood/grocer-ledger/internal/scanning"
)

// IDGenerator generates unique IDs for drafts and receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt draft and budget operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ScanReceipt stores the uploaded image, runs extraction, and opens a draft
// for review. The scanner output is untrusted; every field passes through
// the reconciliation normalizer before the draft exists.
func (s *Service) ScanReceipt(filename string, data []byte, contentType string) (*Draft, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	extracted, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since scanning failed
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	draft := &Draft{
		ID:           id,
		ReceiptDraft: reconcile.NewDraft(extracted.StoreName, extracted.Date, extracted.DeclaredTotal, extracted.Items),
		Filename:     savedPath,
		ContentType:  contentType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.SaveDraft(draft); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving draft: %w", err)
	}

	return draft, nil
}

// GetDraft retrieves a draft by ID
func (s *Service) GetDraft(id string) (*Draft, error) {
	draft, err := s.db.GetDraft(id)
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	return draft, nil
}

// ListDrafts returns all open drafts
func (s *Service) ListDrafts() ([]*Draft, error) {
	drafts, err := s.db.ListDrafts()
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	return drafts, nil
}

// DiscardDraft removes a draft and its stored image
func (s *Service) DiscardDraft(id string) error {
	draft, err := s.db.GetDraft(id)
	if err != nil {
		return fmt.Errorf("getting draft for discard: %w", err)
	}

	if err := s.storage.Delete(draft.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", draft.Filename, "error", err)
	}

	if err := s.db.DeleteDraft(id); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}

// EditOp names a single draft edit command.
type EditOp string

const (
	OpSetField      EditOp = "set_field"
	OpSetItemField  EditOp = "set_item_field"
	OpOverrideTotal EditOp = "override_total"
	OpSetRate       EditOp = "set_rate"
	OpQuantityBlur  EditOp = "quantity_blur"
	OpAddItem       EditOp = "add_item"
	OpRemoveItem    EditOp = "remove_item"
)

// Edit is one command against a draft. Item indexes refer to the draft's
// current item order.
type Edit struct {
	Op    EditOp `json:"op"`
	Item  int    `json:"item"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// EditDraft applies one edit command and persists the resulting draft value.
func (s *Service) EditDraft(id string, edit Edit) (*Draft, error) {
	draft, err := s.db.GetDraft(id)
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}

	next, err := applyEdit(draft.ReceiptDraft, edit)
	if err != nil {
		return nil, fmt.Errorf("applying edit: %w", err)
	}

	draft.ReceiptDraft = next
	draft.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveDraft(draft); err != nil {
		return nil, fmt.Errorf("saving draft: %w", err)
	}
	return draft, nil
}

// applyEdit dispatches an edit command to the reconciliation core.
func applyEdit(d reconcile.ReceiptDraft, edit Edit) (reconcile.ReceiptDraft, error) {
	switch edit.Op {
	case OpSetField:
		return applyReceiptField(d, edit.Field, edit.Value)
	case OpSetItemField:
		switch field := reconcile.ItemField(edit.Field); field {
		case reconcile.FieldName, reconcile.FieldCategory, reconcile.FieldQuantity,
			reconcile.FieldUnitPrice, reconcile.FieldDiscountApplied:
			return d.SetItemField(edit.Item, field, edit.Value)
		default:
			return d, fmt.Errorf("unknown item field: %q", edit.Field)
		}
	case OpOverrideTotal:
		return d.OverrideItemTotal(edit.Item, edit.Value)
	case OpSetRate:
		return d.SetItemRate(edit.Item, edit.Value)
	case OpQuantityBlur:
		return d.QuantityBlur(edit.Item)
	case OpAddItem:
		return d.AddItem(), nil
	case OpRemoveItem:
		return d.RemoveItem(edit.Item)
	default:
		return d, fmt.Errorf("unknown edit op: %q", edit.Op)
	}
}

func applyReceiptField(d reconcile.ReceiptDraft, field string, value any) (reconcile.ReceiptDraft, error) {
	str := func() string {
		if s, ok := value.(string); ok {
			return s
		}
		return ""
	}
	switch field {
	case "store_name":
		return d.SetStoreName(str()), nil
	case "purchase_date":
		return d.SetPurchaseDate(str()), nil
	case "declared_total":
		return d.SetDeclaredTotal(value), nil
	case "notes":
		return d.SetNotes(str()), nil
	default:
		return d, fmt.Errorf("unknown receipt field: %q", field)
	}
}

// ResolveDraft applies the user's declared-total mismatch choice.
func (s *Service) ResolveDraft(id string, choice reconcile.MismatchChoice) (*Draft, error) {
	draft, err := s.db.GetDraft(id)
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}

	next, err := draft.Resolve(choice)
	if err != nil {
		return nil, fmt.Errorf("resolving mismatch: %w", err)
	}

	draft.ReceiptDraft = next
	draft.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveDraft(draft); err != nil {
		return nil, fmt.Errorf("saving draft: %w", err)
	}
	return draft, nil
}

// SaveDraft finalizes a draft into a persisted receipt. Remaining pending
// items are coerced to approved; a draft with zero named items needs
// confirmEmpty. On persistence failure the draft is left untouched so the
// user can retry without losing edits.
func (s *Service) SaveDraft(id string, confirmEmpty bool) (*Receipt, error) {
	draft, err := s.db.GetDraft(id)
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}

	finalized, err := draft.Finalize(confirmEmpty)
	if err != nil {
		return nil, err
	}

	purchaseDate, err := time.Parse("2006-01-02", finalized.PurchaseDate)
	if err != nil {
		purchaseDate = s.timeSource.Now()
	}

	now := s.timeSource.Now()
	receipt := &Receipt{
		ID:               draft.ID,
		StoreName:        finalized.StoreName,
		PurchaseDate:     purchaseDate,
		DeclaredTotal:    finalized.DeclaredTotal,
		Notes:            finalized.Notes,
		Items:            finalized.Items,
		ComputedTotalVAT: finalized.ComputedTotalVAT,
		VATBreakdown:     finalized.VATBreakdown,
		Filename:         draft.Filename,
		ContentType:      draft.ContentType,
		CreatedAt:        draft.CreatedAt,
		UpdatedAt:        now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		// Draft stays intact so the save can be retried
		return nil, fmt.Errorf("saving receipt: %w", err)
	}

	if err := s.db.DeleteDraft(draft.ID); err != nil {
		slog.Warn("Failed to delete draft after save", "id", draft.ID, "error", err)
	}

	return receipt, nil
}

// GetReceipt retrieves a finalized receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all finalized receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its stored image
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the stored image for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// SetBudget upserts the monthly limit for a category.
func (s *Service) SetBudget(category string, monthlyLimit any) (*budget.Budget, error) {
	parsed := reconcile.ParseCategory(category)
	if string(parsed) != strings.ToLower(strings.TrimSpace(category)) {
		return nil, fmt.Errorf("unknown category: %q", category)
	}

	limit := reconcile.ParseDecimalOrDefault(monthlyLimit, decimal.NewFromInt(-1))
	if limit.IsNegative() {
		return nil, fmt.Errorf("monthly limit must be a non-negative amount")
	}

	b := &budget.Budget{
		Category:     parsed,
		MonthlyLimit: limit,
		UpdatedAt:    s.timeSource.Now(),
	}
	if err := s.db.SaveBudget(b); err != nil {
		return nil, fmt.Errorf("saving budget: %w", err)
	}
	return b, nil
}

// ListBudgets returns all category budgets
func (s *Service) ListBudgets() ([]*budget.Budget, error) {
	budgets, err := s.db.ListBudgets()
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}
	return budgets, nil
}

// MonthlySummary aggregates spend from finalized receipts in a month and
// compares it against the category budgets.
func (s *Service) MonthlySummary(month string) (*budget.Summary, error) {
	month, err := budget.ParseMonth(month)
	if err != nil {
		return nil, err
	}

	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	lines := make([]budget.Line, 0)
	for _, receipt := range receipts {
		if receipt.PurchaseDate.Format("2006-01") != month {
			continue
		}
		for _, item := range receipt.Items {
			lines = append(lines, budget.Line{
				Category: item.Category,
				Amount:   item.TotalPrice,
			})
		}
	}

	budgets, err := s.db.ListBudgets()
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}
	deref := make([]budget.Budget, 0, len(budgets))
	for _, b := range budgets {
		deref = append(deref, *b)
	}

	summary := budget.Summarize(month, lines, deref)
	return &summary, nil
}
