package domain

// Vendor holds the supplier identity as copied from the invoice text.
// Fields the model could not see stay empty rather than guessed.
type Vendor struct {
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Country   string `json:"country,omitempty"`
	VATNumber string `json:"vat_number,omitempty"`
	Website   string `json:"website,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	IBAN      string `json:"iban,omitempty"`
}

// Invoice holds the document-level figures. Total is the only amount the
// pipeline insists on; every other numeric field is a pointer so that
// "not on the invoice" stays distinguishable from zero.
type Invoice struct {
	Number    string   `json:"number,omitempty"`
	Date      string   `json:"date,omitempty"`
	DueDate   string   `json:"due_date,omitempty"`
	Currency  string   `json:"currency"`
	Subtotal  *float64 `json:"subtotal,omitempty"`
	TaxAmount *float64 `json:"tax_amount,omitempty"`
	Total     float64  `json:"total"`
}

type LineItem struct {
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	TaxRatePercent float64 `json:"tax_rate_percent"`
	LineTotal      float64 `json:"line_total"`
	CategoryHint   string  `json:"category_hint,omitempty"`
}

type Classification struct {
	IsRecurring        bool   `json:"is_recurring"`
	RecurringFrequency string `json:"recurring_frequency,omitempty"`
	ExpenseCategory    string `json:"expense_category"`
	IsReverseCharge    bool   `json:"is_reverse_charge"`
}

// Confidence carries calibrated [0,1] scores per extraction area plus the
// review routing decision derived from them.
type Confidence struct {
	Overall       float64  `json:"overall"`
	Vendor        float64  `json:"vendor"`
	Amounts       float64  `json:"amounts"`
	LineItems     float64  `json:"line_items"`
	RequiresReview bool    `json:"requires_review"`
	ReviewReasons []string `json:"review_reasons,omitempty"`
}

// ExtractionResult is the canonical structured invoice. It is created once
// per successful extraction attempt and never mutated afterwards; downstream
// stages produce new objects that reference it.
type ExtractionResult struct {
	Vendor         Vendor         `json:"vendor"`
	Invoice        Invoice        `json:"invoice"`
	LineItems      []LineItem     `json:"line_items"`
	Classification Classification `json:"classification"`
	Confidence     Confidence     `json:"confidence"`
}

// DocumentType distinguishes the kinds of documents that reach the import
// endpoint; everything that is not recognizably something else is an expense.
type DocumentType string

const (
	DocExpense    DocumentType = "expense"
	DocBill       DocumentType = "bill"
	DocCreditNote DocumentType = "credit_note"
	DocProforma   DocumentType = "proforma"
)

// ExpenseCategories is the closed vocabulary the extraction instructions and
// the keyword fallback both draw from.
var ExpenseCategories = []string{
	"software",
	"hosting",
	"advertising",
	"telecom",
	"travel",
	"insurance",
	"rent",
	"office_supplies",
	"professional_services",
	"utilities",
	"other",
}

// ValidExpenseCategory reports whether category is in the closed vocabulary.
func ValidExpenseCategory(category string) bool {
	for _, c := range ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}
