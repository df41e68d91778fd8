package scanning

// ReceiptData is the raw extraction result for a scanned receipt. Line item
// fields are left untyped: extractor output is untrusted, and the
// reconciliation core coerces every value itself.
type ReceiptData struct {
	StoreName     string           `json:"store_name"`
	Date          string           `json:"date"` // ISO 8601 format
	DeclaredTotal any              `json:"declared_total"`
	Items         []map[string]any `json:"items"`
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts the store, date,
	// declared total and line items
	ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}
