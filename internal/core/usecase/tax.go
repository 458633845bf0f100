package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
)

// ClassifyTax picks the applicable tax rate for an extraction and links it
// to one of the company's configured rate records where possible.
type ClassifyTax struct {
	rates        ports.TaxRateRepository
	standardRate float64
	log          *slog.Logger
}

func NewClassifyTax(rates ports.TaxRateRepository, standardRate float64, log *slog.Logger) *ClassifyTax {
	return &ClassifyTax{rates: rates, standardRate: standardRate, log: log}
}

func (uc *ClassifyTax) Execute(ctx context.Context, companyID string, extraction *domain.ExtractionResult) (*domain.TaxDecision, error) {
	decision := &domain.TaxDecision{
		IsReverseCharge: extraction.Classification.IsReverseCharge,
	}
	if decision.IsReverseCharge {
		decision.Rate = 0
	} else {
		decision.Rate = dominantRate(extraction.LineItems, uc.standardRate)
	}

	records, err := uc.rates.ListActive(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list tax rates: %w", err)
	}
	decision.RateID = matchRateRecord(records, decision.Rate)
	if decision.RateID == nil && len(records) > 0 {
		uc.log.WarnContext(ctx, "no configured tax rate matches invoice",
			"company_id", companyID, "rate", decision.Rate)
	}
	return decision, nil
}

// dominantRate is the most frequent tax rate across line items; ties go to
// the higher rate. Invoices without line items get the standard rate.
func dominantRate(items []domain.LineItem, standard float64) float64 {
	if len(items) == 0 {
		return standard
	}
	counts := make(map[float64]int)
	for _, li := range items {
		counts[li.TaxRatePercent]++
	}
	best := items[0].TaxRatePercent
	for rate, n := range counts {
		if n > counts[best] || (n == counts[best] && rate > best) {
			best = rate
		}
	}
	return best
}

// matchRateRecord prefers a record with exactly the computed rate, falling
// back to the company default. Nil means the company configured no usable
// rate records; the decision still carries the numeric rate.
func matchRateRecord(records []domain.TaxRateRecord, rate float64) *string {
	for _, r := range records {
		if r.Rate == rate {
			id := r.ID
			return &id
		}
	}
	for _, r := range records {
		if r.IsDefault {
			id := r.ID
			return &id
		}
	}
	return nil
}
