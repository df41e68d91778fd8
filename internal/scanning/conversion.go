package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// receiptScanPrompt is the shared prompt used by all LLM providers for
// extracting grocery receipt line items.
const receiptScanPrompt = `You are analyzing a grocery store receipt. Carefully read all text in the image and extract the following information:

1. **Store Name**: The supermarket or shop name, usually the largest text at the top. Examples: "Tesco", "Sainsbury's", "Aldi", "Lidl", "Co-op".

2. **Date**: The purchase date. Convert it to ISO 8601 format (YYYY-MM-DD). UK receipts usually print DD/MM/YYYY.

3. **Declared Total**: The printed grand total, usually at the bottom, labelled "TOTAL", "Total to pay", "Balance due" or similar. Numeric value only.

4. **Line Items**: Every product line on the receipt. For each item extract:
   - name: the product description as printed
   - category: one of produce, meat_fish, dairy_eggs, bakery, pantry, frozen, drinks, snacks, household, health_beauty, baby_pet, other
   - quantity: number of units (default 1 if not printed)
   - unit_price: price per unit in pounds
   - discount_applied: any line-level discount or multibuy saving, as a positive number (0 if none)
   - total_price: the line total as printed
   - pack_size_value: numeric pack size if printed (e.g. 500 for "500g"), else 0
   - vat_rate: 0, 5 or 20. Most food is 0. Alcohol, soft drinks, confectionery, and household/health products are 20. Home energy-type items are 5.
   - confidence_score: your confidence in this line from 0.0 to 1.0

Return ONLY valid JSON in this exact format:
{
  "store_name": "Store Name",
  "date": "YYYY-MM-DD",
  "declared_total": 0.00,
  "items": [
    {"name": "...", "category": "...", "quantity": 1, "unit_price": 0.00, "discount_applied": 0.00, "total_price": 0.00, "pack_size_value": 0, "vat_rate": 0, "confidence_score": 0.0}
  ]
}

Important:
- Amounts must be numbers (not strings), in pounds and pence
- Do not invent items you cannot read; skip illegible lines
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// pdfToImage converts a PDF to a PNG image
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Render the first page (receipts are single page)
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// imageToPNG converts any image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// HEIC/HEIF (common on iPhones) is not supported by the standard image
	// package
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks for the HEIC/HEIF ftyp box magic bytes
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// convertToPNG converts PDFs and non-PNG images to PNG format.
// Returns the PNG data and a boolean indicating if conversion occurred
func convertToPNG(imageData []byte, mimeType string) ([]byte, bool, error) {
	if mimeType == "application/pdf" {
		pngData, err := pdfToImage(imageData)
		if err != nil {
			return nil, false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, true, nil
	} else if mimeType != "image/png" || isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		pngData, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, false, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, true, nil
	}
	return imageData, false, nil
}

// prepareImageData normalizes the MIME type and converts the image to PNG if
// needed. After this, the data is always PNG.
func prepareImageData(imageData []byte, contentType string) ([]byte, string, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg" // default
	}

	finalImageData, converted, err := convertToPNG(imageData, mimeType)
	if err != nil {
		return nil, "", false, err
	}

	return finalImageData, "image/png", converted, nil
}
