package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
)

const nameSearchLimit = 3

// Match confidences are fixed per tier; the tiers are ordered by how hard
// the evidence is, not by string similarity.
const (
	confidenceExactVAT    = 0.99
	confidenceFuzzyName   = 0.85
	confidencePartialName = 0.70
	confidenceNew         = 1.0
)

// ResolveVendor finds the vendor record an extraction refers to, creating
// one when no tier matches. Resolution and creation are deliberately one
// operation so an import never ends up without a vendor id.
type ResolveVendor struct {
	vendors ports.VendorRepository
	log     *slog.Logger
}

func NewResolveVendor(vendors ports.VendorRepository, log *slog.Logger) *ResolveVendor {
	return &ResolveVendor{vendors: vendors, log: log}
}

func (uc *ResolveVendor) Execute(ctx context.Context, companyID string, v domain.Vendor) (*domain.VendorMatch, error) {
	if strings.TrimSpace(v.Name) == "" && v.VATNumber == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve vendor", fmt.Errorf("no vendor name or VAT number"))
	}

	if v.VATNumber != "" {
		rec, err := uc.vendors.FindByVAT(ctx, companyID, v.VATNumber)
		if err != nil {
			return nil, fmt.Errorf("find vendor by vat: %w", err)
		}
		if rec != nil {
			return &domain.VendorMatch{ID: rec.ID, MatchType: domain.MatchExactVAT, Confidence: confidenceExactVAT}, nil
		}
	}

	name := strings.TrimSpace(v.Name)
	if name != "" {
		recs, err := uc.vendors.SearchByName(ctx, companyID, name, nameSearchLimit)
		if err != nil {
			return nil, fmt.Errorf("search vendor by name: %w", err)
		}
		if len(recs) > 0 {
			return &domain.VendorMatch{ID: recs[0].ID, MatchType: domain.MatchFuzzyName, Confidence: confidenceFuzzyName}, nil
		}

		if word := firstSignificantWord(name); word != "" {
			recs, err = uc.vendors.SearchByFirstWord(ctx, companyID, word, nameSearchLimit)
			if err != nil {
				return nil, fmt.Errorf("search vendor by first word: %w", err)
			}
			if len(recs) > 0 {
				return &domain.VendorMatch{ID: recs[0].ID, MatchType: domain.MatchPartialName, Confidence: confidencePartialName}, nil
			}
		}
	}

	rec := &domain.VendorRecord{
		CompanyID: companyID,
		Name:      name,
		Email:     v.Email,
		Phone:     v.Phone,
		Address:   v.Address,
		VATNumber: v.VATNumber,
		Website:   v.Website,
		IBAN:      v.IBAN,
	}
	if rec.Name == "" {
		rec.Name = "Unknown vendor " + v.VATNumber
	}
	if err := uc.vendors.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create vendor: %w", err)
	}
	uc.log.InfoContext(ctx, "vendor created", "vendor_id", rec.ID, "name", rec.Name)
	return &domain.VendorMatch{ID: rec.ID, MatchType: domain.MatchNew, Confidence: confidenceNew}, nil
}

// firstSignificantWord returns the first word of the name when it is long
// enough to be discriminating. Short tokens like "De" or "BV" match far too
// much to be useful.
func firstSignificantWord(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return ""
	}
	word := fields[0]
	if len(word) < 4 {
		return ""
	}
	return word
}
