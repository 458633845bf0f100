package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

type TaxRateRepository struct {
	db *sql.DB
}

func NewTaxRateRepository(db *sql.DB) *TaxRateRepository {
	return &TaxRateRepository{db: db}
}

// ListActive returns the company's rates with the default first so callers
// can fall back to records[0] cheaply.
func (r *TaxRateRepository) ListActive(ctx context.Context, companyID string) ([]domain.TaxRateRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, rate, is_default
FROM tax_rates
WHERE company_id = $1 AND active
ORDER BY is_default DESC, rate DESC
`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list tax rates: %w", err)
	}
	defer rows.Close()

	var out []domain.TaxRateRecord
	for rows.Next() {
		var rec domain.TaxRateRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Rate, &rec.IsDefault); err != nil {
			return nil, fmt.Errorf("scan tax rate: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax rates: %w", err)
	}
	return out, nil
}
