package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/textproc"
)

// ImportPipeline coordinates the stages of a single invoice import. Only
// extraction is fatal; vendor, tax and currency failures degrade their part
// of the result to null so a review queue downstream can fill the gaps.
type ImportPipeline struct {
	extract    *ExtractInvoice
	vendors    *ResolveVendor
	tax        *ClassifyTax
	currency   *ConvertCurrency
	recurrence *DetectRecurrence
	log        *slog.Logger
	now        func() time.Time
}

func NewImportPipeline(
	extract *ExtractInvoice,
	vendors *ResolveVendor,
	tax *ClassifyTax,
	currency *ConvertCurrency,
	recurrence *DetectRecurrence,
	log *slog.Logger,
) *ImportPipeline {
	return &ImportPipeline{
		extract:    extract,
		vendors:    vendors,
		tax:        tax,
		currency:   currency,
		recurrence: recurrence,
		log:        log,
		now:        time.Now,
	}
}

func (uc *ImportPipeline) Import(ctx context.Context, req domain.ImportRequest) (*domain.PipelineResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	started := uc.now()
	extraction, err := uc.extract.Execute(ctx, req.PDFText)
	if err != nil {
		return nil, err
	}

	result := &domain.PipelineResult{
		Extraction:   extraction,
		DocumentType: domain.DocumentType(textproc.ClassifyDocumentType(req.PDFText, extraction.Invoice.Total, extraction.Invoice.DueDate)),
	}

	match, err := uc.vendors.Execute(ctx, req.CompanyID, extraction.Vendor)
	if err != nil {
		uc.log.WarnContext(ctx, "vendor resolution degraded", "error", err)
	} else {
		result.VendorMatch = match
	}

	decision, err := uc.tax.Execute(ctx, req.CompanyID, extraction)
	if err != nil {
		uc.log.WarnContext(ctx, "tax classification degraded", "error", err)
	} else {
		result.TaxClassification = decision
	}

	if extraction.Invoice.Total > 0 {
		conv, err := uc.currency.Execute(ctx, extraction.Invoice.Total, extraction.Invoice.Currency, uc.rateDate(req, extraction))
		if err != nil {
			uc.log.WarnContext(ctx, "currency conversion degraded", "error", err)
		} else {
			result.CurrencyConversion = conv
		}
	}

	result.Recurring = uc.recurrence.Execute(extraction)

	uc.log.InfoContext(ctx, "import pipeline finished",
		"company_id", req.CompanyID,
		"file", req.FileName,
		"document_type", string(result.DocumentType),
		"vendor_matched", result.VendorMatch != nil,
		"converted", result.CurrencyConversion != nil,
		"duration_ms", uc.now().Sub(started).Milliseconds())
	return result, nil
}

// rateDate picks the date the exchange rate should settle on: the payment
// date when the caller knows it, otherwise the invoice date, otherwise today.
func (uc *ImportPipeline) rateDate(req domain.ImportRequest, extraction *domain.ExtractionResult) string {
	if validISODate(req.PaymentDate) {
		return req.PaymentDate
	}
	if validISODate(extraction.Invoice.Date) {
		return extraction.Invoice.Date
	}
	return uc.now().Format(dateLayout)
}

func validateRequest(req domain.ImportRequest) error {
	if strings.TrimSpace(req.PDFText) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "import", fmt.Errorf("pdf_text is required"))
	}
	if strings.TrimSpace(req.CompanyID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "import", fmt.Errorf("company_id is required"))
	}
	if strings.TrimSpace(req.UserID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "import", fmt.Errorf("user_id is required"))
	}
	if req.PaymentDate != "" && !validISODate(req.PaymentDate) {
		return domain.WrapError(domain.ErrInvalidInput, "import", fmt.Errorf("payment_date must be YYYY-MM-DD"))
	}
	return nil
}

func validISODate(s string) bool {
	if s == "" {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
