package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fernwood/grocer-ledger/internal/reconcile"
)

// Draft is a receipt under review: the reconciliation state plus the stored
// source image and bookkeeping metadata. The embedded draft value is only
// ever replaced wholesale through reconcile command operations.
type Draft struct {
	ID string `json:"id"`
	reconcile.ReceiptDraft
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Receipt is a finalized, persisted receipt.
type Receipt struct {
	ID               string                                 `json:"id"`
	StoreName        string                                 `json:"store_name"`
	PurchaseDate     time.Time                              `json:"purchase_date"`
	DeclaredTotal    decimal.Decimal                        `json:"declared_total"`
	Notes            string                                 `json:"notes"`
	Items            []reconcile.LineItem                   `json:"items"`
	ComputedTotalVAT decimal.Decimal                        `json:"computed_total_vat"`
	VATBreakdown     map[reconcile.RateBand]decimal.Decimal `json:"vat_breakdown"`
	Filename         string                                 `json:"filename"`
	ContentType      string                                 `json:"content_type"`
	CreatedAt        time.Time                              `json:"created_at"`
	UpdatedAt        time.Time                              `json:"updated_at"`
}
