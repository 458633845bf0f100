package usecase

import (
	"fmt"
	"strings"
)

const maxPromptChars = 24000

const extractionSystemPrompt = `You are an invoice data extraction engine. You read raw text extracted from an invoice PDF and respond with exactly one JSON object, no prose, no markdown fences. If a field is not present in the document, use null. Never guess or invent values.`

const extractionSchema = `{
  "vendor": {
    "name": string|null,
    "address": string|null,
    "country": string|null (ISO 3166-1 alpha-2),
    "vat_number": string|null,
    "website": string|null,
    "email": string|null,
    "phone": string|null,
    "iban": string|null
  },
  "invoice": {
    "number": string|null,
    "date": string|null (YYYY-MM-DD),
    "due_date": string|null (YYYY-MM-DD),
    "currency": string|null (ISO 4217, map symbols: € -> EUR, $ -> USD, £ -> GBP),
    "subtotal": number|null,
    "tax_amount": number|null,
    "total": number|null
  },
  "line_items": [
    {
      "description": string,
      "quantity": number,
      "unit_price": number,
      "tax_rate": number (percent, e.g. 21),
      "line_total": number,
      "category": string|null
    }
  ],
  "classification": {
    "is_recurring": boolean,
    "recurring_frequency": "monthly"|"weekly"|"quarterly"|"annual"|null,
    "expense_category": "software"|"hosting"|"advertising"|"telecom"|"travel"|"insurance"|"rent"|"office_supplies"|"professional_services"|"utilities"|"other",
    "is_reverse_charge": boolean
  },
  "buyer": {
    "vat_number": string|null
  }
}`

func buildExtractionPrompt(pdfText string) string {
	text := pdfText
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	var b strings.Builder
	b.WriteString("Extract the structured data from the invoice text below.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Dates in ISO format YYYY-MM-DD. Convert formats such as 31-01-2024 or Jan 31, 2024.\n")
	b.WriteString("- Amounts as plain numbers without currency symbols or thousands separators.\n")
	b.WriteString("- vendor is the party that ISSUED the invoice, buyer is the party being billed.\n")
	b.WriteString("- Use null for anything the document does not state.\n\n")
	fmt.Fprintf(&b, "Respond with one JSON object matching this schema:\n%s\n\n", extractionSchema)
	fmt.Fprintf(&b, "Invoice text:\n---\n%s\n---\n", text)
	return b.String()
}
