package domain

import "time"

type MatchType string

const (
	MatchExactVAT    MatchType = "exact_vat"
	MatchFuzzyName   MatchType = "fuzzy_name"
	MatchPartialName MatchType = "partial_name"
	MatchNew         MatchType = "new"
)

// VendorMatch links an extraction to a vendor record. Confidence is a fixed
// constant per match type, not a string distance.
type VendorMatch struct {
	ID         string    `json:"id"`
	MatchType  MatchType `json:"match_type"`
	Confidence float64   `json:"confidence"`
}

// VendorRecord is the persisted vendor row; empty optional fields are stored
// as NULL, never as empty strings.
type VendorRecord struct {
	ID        string
	CompanyID string
	Name      string
	Email     string
	Phone     string
	Address   string
	VATNumber string
	Website   string
	IBAN      string
}

// TaxRateRecord is a company-configured tax rate.
type TaxRateRecord struct {
	ID        string
	Name      string
	Rate      float64
	IsDefault bool
}

// TaxDecision is recomputed on every call from the classification and the
// company's configured rates. RateID is nil when the company has no
// configured rate records at all.
type TaxDecision struct {
	RateID          *string `json:"rate_id"`
	Rate            float64 `json:"rate"`
	IsReverseCharge bool    `json:"is_reverse_charge"`
}

type RateSource string

const (
	RateSourceIdentity RateSource = "identity"
	RateSourceCache    RateSource = "cache"
	RateSourcePrimary  RateSource = "primary_feed"
	RateSourceFallback RateSource = "fallback_feed"
)

// ExchangeRate expresses home units per one unit of CurrencyFrom. At most one
// rate exists per (from, to, rate_date); once cached for a date it is
// immutable, historical rates do not change.
type ExchangeRate struct {
	CurrencyFrom string     `json:"currency_from"`
	CurrencyTo   string     `json:"currency_to"`
	Rate         float64    `json:"rate"`
	RateDate     string     `json:"rate_date"`
	Source       RateSource `json:"source"`
}

type CurrencyConversion struct {
	OriginalCurrency string     `json:"original_currency"`
	OriginalAmount   float64    `json:"original_amount"`
	ExchangeRate     float64    `json:"exchange_rate"`
	HomeAmount       float64    `json:"eur_amount"`
	Source           RateSource `json:"source"`
}

type RecurrenceSignal struct {
	Detected          bool    `json:"detected"`
	Frequency         *string `json:"frequency"`
	SuggestedNextDate *string `json:"suggested_next_date"`
}

// PipelineResult is the envelope handed back to the caller; it is the only
// object the surrounding product persists.
type PipelineResult struct {
	Extraction         *ExtractionResult   `json:"extraction"`
	DocumentType       DocumentType        `json:"document_type"`
	VendorMatch        *VendorMatch        `json:"vendor_match"`
	TaxClassification  *TaxDecision        `json:"tax_classification"`
	CurrencyConversion *CurrencyConversion `json:"currency_conversion"`
	Recurring          RecurrenceSignal    `json:"recurring"`
}

// ImportRequest is the single input to the pipeline.
type ImportRequest struct {
	PDFText     string `json:"pdf_text"`
	FileName    string `json:"file_name"`
	CompanyID   string `json:"company_id"`
	UserID      string `json:"user_id"`
	PaymentDate string `json:"payment_date,omitempty"`
}

type ImportStatus string

const (
	ImportQueued     ImportStatus = "queued"
	ImportProcessing ImportStatus = "processing"
	ImportDone       ImportStatus = "done"
	ImportFailed     ImportStatus = "failed"
)

// ImportJob is a queued pipeline invocation processed by the worker.
type ImportJob struct {
	ID        string          `json:"id"`
	Request   ImportRequest   `json:"request"`
	Status    ImportStatus    `json:"status"`
	Result    *PipelineResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
