package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/textproc"
)

const (
	// Tolerances for cross-checking amounts the model extracted.
	totalTolerance   = 0.10
	lineSumTolerance = 1.00

	reviewThreshold = 0.90
)

// ExtractInvoice turns raw invoice text into a structured ExtractionResult.
// It escalates across three model attempts before giving up, then sanitizes
// and enriches whatever the model produced.
type ExtractInvoice struct {
	chat        ports.ChatCompleter
	homeCountry string
	log         *slog.Logger
}

func NewExtractInvoice(chat ports.ChatCompleter, homeCountry string, log *slog.Logger) *ExtractInvoice {
	return &ExtractInvoice{chat: chat, homeCountry: homeCountry, log: log}
}

// rawExtraction mirrors the JSON schema the prompt asks for. Amounts use
// FlexFloat because models sometimes quote them as strings.
type rawExtraction struct {
	Vendor struct {
		Name      string `json:"name"`
		Address   string `json:"address"`
		Country   string `json:"country"`
		VATNumber string `json:"vat_number"`
		Website   string `json:"website"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		IBAN      string `json:"iban"`
	} `json:"vendor"`
	Invoice struct {
		Number    string             `json:"number"`
		Date      string             `json:"date"`
		DueDate   string             `json:"due_date"`
		Currency  string             `json:"currency"`
		Subtotal  textproc.FlexFloat `json:"subtotal"`
		TaxAmount textproc.FlexFloat `json:"tax_amount"`
		Total     textproc.FlexFloat `json:"total"`
	} `json:"invoice"`
	LineItems []struct {
		Description string             `json:"description"`
		Quantity    textproc.FlexFloat `json:"quantity"`
		UnitPrice   textproc.FlexFloat `json:"unit_price"`
		TaxRate     textproc.FlexFloat `json:"tax_rate"`
		LineTotal   textproc.FlexFloat `json:"line_total"`
		Category    string             `json:"category"`
	} `json:"line_items"`
	Classification struct {
		IsRecurring        bool   `json:"is_recurring"`
		RecurringFrequency string `json:"recurring_frequency"`
		ExpenseCategory    string `json:"expense_category"`
		IsReverseCharge    bool   `json:"is_reverse_charge"`
	} `json:"classification"`
	Buyer struct {
		VATNumber string `json:"vat_number"`
	} `json:"buyer"`
}

func (uc *ExtractInvoice) Execute(ctx context.Context, pdfText string) (*domain.ExtractionResult, error) {
	if strings.TrimSpace(pdfText) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("empty document text"))
	}

	raw, err := uc.extractWithRetries(ctx, pdfText)
	if err != nil {
		return nil, err
	}

	result := uc.sanitize(raw, pdfText)
	uc.enrich(result, pdfText)
	uc.score(result)

	uc.log.InfoContext(ctx, "extraction complete",
		"vendor", result.Vendor.Name,
		"total", result.Invoice.Total,
		"currency", result.Invoice.Currency,
		"confidence", result.Confidence.Overall,
		"requires_review", result.Confidence.RequiresReview)
	return result, nil
}

// extractWithRetries runs the escalation ladder: primary model in JSON mode,
// primary model free-form with candidate cleanup, then the fallback model in
// JSON mode. The first attempt that yields a parseable object wins.
func (uc *ExtractInvoice) extractWithRetries(ctx context.Context, pdfText string) (*rawExtraction, error) {
	attempts := []struct {
		name      string
		model     ports.ModelTier
		forceJSON bool
	}{
		{"primary_json", ports.ModelPrimary, true},
		{"primary_freeform", ports.ModelPrimary, false},
		{"fallback_json", ports.ModelFallback, true},
	}

	var lastErr error
	for i, att := range attempts {
		res, err := uc.chat.Complete(ctx, ports.ChatRequest{
			System:    extractionSystemPrompt,
			Prompt:    buildExtractionPrompt(pdfText),
			Model:     att.model,
			ForceJSON: att.forceJSON,
		})
		if err != nil {
			lastErr = err
			uc.log.WarnContext(ctx, "extraction attempt failed", "attempt", att.name, "error", err)
			continue
		}

		raw, perr := parseExtraction(res.Content)
		if perr != nil {
			lastErr = perr
			uc.log.WarnContext(ctx, "extraction attempt produced unusable output",
				"attempt", att.name, "error", perr, "output_len", len(res.Content))
			continue
		}
		if i > 0 {
			uc.log.InfoContext(ctx, "extraction recovered on retry", "attempt", att.name)
		}
		return raw, nil
	}
	return nil, domain.WrapError(domain.ErrExtractionFailed, "extract", lastErr)
}

func parseExtraction(content string) (*rawExtraction, error) {
	obj, ok := textproc.RecoverJSONObject(content)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	var raw rawExtraction
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		obj = textproc.CleanJSONCandidate(obj)
		if err2 := json.Unmarshal([]byte(obj), &raw); err2 != nil {
			return nil, fmt.Errorf("decode extraction: %w", err)
		}
	}
	if strings.TrimSpace(raw.Vendor.Name) == "" && valueOf(raw.Invoice.Total) == 0 {
		return nil, fmt.Errorf("extraction missing both vendor name and total")
	}
	return &raw, nil
}

// sanitize normalizes the raw model output into domain values: cleaned VAT
// ids, ISO currency, numeric amounts.
func (uc *ExtractInvoice) sanitize(raw *rawExtraction, pdfText string) *domain.ExtractionResult {
	r := &domain.ExtractionResult{}

	r.Vendor = domain.Vendor{
		Name:      strings.TrimSpace(raw.Vendor.Name),
		Address:   strings.TrimSpace(raw.Vendor.Address),
		Country:   strings.ToUpper(strings.TrimSpace(raw.Vendor.Country)),
		VATNumber: textproc.CleanVATNumber(raw.Vendor.VATNumber),
		Website:   strings.TrimSpace(raw.Vendor.Website),
		Email:     strings.TrimSpace(raw.Vendor.Email),
		Phone:     strings.TrimSpace(raw.Vendor.Phone),
		IBAN:      strings.ToUpper(strings.ReplaceAll(raw.Vendor.IBAN, " ", "")),
	}

	// A model that reads the buyer's own VAT id as the supplier's produces a
	// self-referential invoice. Drop the id in that case.
	if buyerVAT := textproc.CleanVATNumber(raw.Buyer.VATNumber); buyerVAT != "" && buyerVAT == r.Vendor.VATNumber {
		r.Vendor.VATNumber = ""
	}

	currency := textproc.NormalizeCurrency(raw.Invoice.Currency)
	if currency == "" {
		currency = textproc.DetectCurrency(pdfText)
	}
	r.Invoice = domain.Invoice{
		Number:    strings.TrimSpace(raw.Invoice.Number),
		Date:      strings.TrimSpace(raw.Invoice.Date),
		DueDate:   strings.TrimSpace(raw.Invoice.DueDate),
		Currency:  currency,
		Subtotal:  raw.Invoice.Subtotal.Value,
		TaxAmount: raw.Invoice.TaxAmount.Value,
		Total:     valueOf(raw.Invoice.Total),
	}

	for _, li := range raw.LineItems {
		item := domain.LineItem{
			Description:    strings.TrimSpace(li.Description),
			Quantity:       valueOf(li.Quantity),
			UnitPrice:      valueOf(li.UnitPrice),
			TaxRatePercent: valueOf(li.TaxRate),
			LineTotal:      valueOf(li.LineTotal),
			CategoryHint:   strings.TrimSpace(li.Category),
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if item.LineTotal == 0 && item.UnitPrice != 0 {
			item.LineTotal = round2(item.Quantity * item.UnitPrice)
		}
		r.LineItems = append(r.LineItems, item)
	}

	r.Classification = domain.Classification{
		IsRecurring:        raw.Classification.IsRecurring,
		RecurringFrequency: strings.ToLower(strings.TrimSpace(raw.Classification.RecurringFrequency)),
		ExpenseCategory:    strings.ToLower(strings.TrimSpace(raw.Classification.ExpenseCategory)),
		IsReverseCharge:    raw.Classification.IsReverseCharge,
	}
	return r
}

// enrich fills the gaps the model left and overrides the classifications
// that have deterministic answers.
func (uc *ExtractInvoice) enrich(r *domain.ExtractionResult, pdfText string) {
	if r.Vendor.Country == "" || !validCountryCode(r.Vendor.Country) {
		r.Vendor.Country = textproc.DetectCountry(r.Vendor.VATNumber, r.Vendor.Country, r.Vendor.Address, r.Vendor.IBAN)
	}

	lines := make([]string, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		lines = append(lines, li.Description)
	}

	// Reverse charge is a rule, not a judgement call. EU vendors outside the
	// home country shift the VAT to the buyer; so do non-EU service vendors
	// (goods go through customs instead). With no country at all, service
	// wording or a no-VAT-no-tax invoice still points at a foreign supplier.
	isService := textproc.LooksLikeServices(append([]string{r.Vendor.Name, pdfText}, lines...))
	switch {
	case r.Vendor.Country == uc.homeCountry:
		r.Classification.IsReverseCharge = false
	case textproc.IsEUCountry(r.Vendor.Country):
		r.Classification.IsReverseCharge = true
	case r.Vendor.Country != "":
		r.Classification.IsReverseCharge = isService
	default:
		r.Classification.IsReverseCharge = isService ||
			(r.Vendor.VATNumber == "" && invoiceShowsNoTax(r))
	}

	if !domain.ValidExpenseCategory(r.Classification.ExpenseCategory) {
		r.Classification.ExpenseCategory, _ = textproc.ClassifyExpenseCategory(r.Vendor.Name, lines)
	}

	if !r.Classification.IsRecurring {
		recurring, freq := textproc.DetectRecurringFromText(pdfText)
		if recurring {
			r.Classification.IsRecurring = true
			r.Classification.RecurringFrequency = freq
		}
	}
	if r.Classification.IsRecurring && !validFrequency(r.Classification.RecurringFrequency) {
		r.Classification.RecurringFrequency = "monthly"
	}
}

// score computes per-area confidence and the weighted overall value.
func (uc *ExtractInvoice) score(r *domain.ExtractionResult) {
	var reasons []string

	vendor := 0.0
	if r.Vendor.Name != "" {
		vendor += 0.5
	} else {
		reasons = append(reasons, "vendor name missing")
	}
	if r.Vendor.VATNumber != "" {
		vendor += 0.3
	}
	if r.Vendor.Country != "" {
		vendor += 0.2
	}

	amounts := 0.0
	switch {
	case r.Invoice.Total <= 0:
		amounts = 0.1
		reasons = append(reasons, "total amount missing or zero")
	default:
		amounts = 0.6
		if r.Invoice.Subtotal != nil {
			amounts += 0.2
		}
		if mathChecksOut(r.Invoice) {
			amounts += 0.2
		} else if r.Invoice.Subtotal != nil && r.Invoice.TaxAmount != nil {
			reasons = append(reasons, "subtotal plus tax does not match total")
		}
	}

	items := 0.3
	if len(r.LineItems) > 0 {
		items = 1.0
		if r.Invoice.Subtotal != nil {
			var sum float64
			for _, li := range r.LineItems {
				sum += li.LineTotal
			}
			if math.Abs(sum-*r.Invoice.Subtotal) > lineSumTolerance {
				items = 0.6
				reasons = append(reasons, "line items do not sum to subtotal")
			}
		}
	} else {
		reasons = append(reasons, "no line items extracted")
	}

	overall := round2(0.25*vendor + 0.40*amounts + 0.35*items)
	r.Confidence = domain.Confidence{
		Overall:        overall,
		Vendor:         round2(vendor),
		Amounts:        round2(amounts),
		LineItems:      round2(items),
		RequiresReview: overall < reviewThreshold || len(reasons) > 0,
		ReviewReasons:  reasons,
	}
}

func mathChecksOut(inv domain.Invoice) bool {
	if inv.Subtotal == nil || inv.TaxAmount == nil {
		return false
	}
	return math.Abs(*inv.Subtotal+*inv.TaxAmount-inv.Total) <= totalTolerance
}

// invoiceShowsNoTax reports that the invoice carries no VAT at all, neither
// as a tax amount nor on any line.
func invoiceShowsNoTax(r *domain.ExtractionResult) bool {
	if r.Invoice.TaxAmount != nil && *r.Invoice.TaxAmount != 0 {
		return false
	}
	for _, li := range r.LineItems {
		if li.TaxRatePercent != 0 {
			return false
		}
	}
	return true
}

func validCountryCode(code string) bool {
	return len(code) == 2 && code == strings.ToUpper(code)
}

func validFrequency(f string) bool {
	switch f {
	case "monthly", "weekly", "quarterly", "annual":
		return true
	}
	return false
}

func valueOf(f textproc.FlexFloat) float64 {
	if f.Value == nil {
		return 0
	}
	return *f.Value
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
