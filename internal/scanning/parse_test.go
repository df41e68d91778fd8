package scanning

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseReceiptJSON", func() {
	It("parses a plain JSON response", func() {
		data, err := parseReceiptJSON(`{
			"store_name": "Sainsbury's",
			"date": "2026-08-14",
			"declared_total": 23.47,
			"items": [
				{"name": "Bread", "category": "bakery", "quantity": 1, "unit_price": 1.10, "vat_rate": 0}
			]
		}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.StoreName).To(Equal("Sainsbury's"))
		Expect(data.Date).To(Equal("2026-08-14"))
		Expect(data.DeclaredTotal).To(Equal(23.47))
		Expect(data.Items).To(HaveLen(1))
		Expect(data.Items[0]).To(HaveKeyWithValue("name", "Bread"))
	})

	It("strips markdown code blocks", func() {
		data, err := parseReceiptJSON("```json\n{\"store_name\": \"Lidl\", \"date\": \"2026-08-01\", \"items\": []}\n```")
		Expect(err).NotTo(HaveOccurred())
		Expect(data.StoreName).To(Equal("Lidl"))
	})

	It("extracts the JSON object from surrounding prose", func() {
		data, err := parseReceiptJSON(`Here is the receipt: {"store_name": "Co-op", "items": []} Let me know if you need more.`)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.StoreName).To(Equal("Co-op"))
	})

	It("leaves item values untyped for downstream coercion", func() {
		data, err := parseReceiptJSON(`{"items": [{"name": "Eggs", "quantity": "six", "unit_price": null}]}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Items[0]).To(HaveKeyWithValue("quantity", "six"))
	})

	It("defaults a missing store name", func() {
		data, err := parseReceiptJSON(`{"store_name": "  ", "items": []}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.StoreName).To(Equal("Unknown Store"))
	})

	It("replaces a nil items array with an empty one", func() {
		data, err := parseReceiptJSON(`{"store_name": "Asda"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Items).NotTo(BeNil())
		Expect(data.Items).To(BeEmpty())
	})

	It("errors when no JSON object is present", func() {
		_, err := parseReceiptJSON("I could not read the receipt, sorry.")
		Expect(err).To(HaveOccurred())
	})

	It("errors on malformed JSON", func() {
		_, err := parseReceiptJSON(`{"store_name": "Tesco", "items": [`)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("normalizeScanDate", func() {
	It("keeps an ISO date", func() {
		Expect(normalizeScanDate("2026-08-14")).To(Equal("2026-08-14"))
	})

	It("converts slash-separated dates", func() {
		Expect(normalizeScanDate("2026/08/14")).To(Equal("2026-08-14"))
		Expect(normalizeScanDate("14/08/2026")).To(Equal("2026-08-14"))
	})

	It("converts dash-separated UK dates", func() {
		Expect(normalizeScanDate("14-08-2026")).To(Equal("2026-08-14"))
	})

	It("defaults an empty date to today", func() {
		Expect(normalizeScanDate("")).To(Equal(time.Now().Format("2006-01-02")))
	})

	It("defaults an unreadable date to today", func() {
		Expect(normalizeScanDate("last tuesday")).To(Equal(time.Now().Format("2006-01-02")))
	})
})
