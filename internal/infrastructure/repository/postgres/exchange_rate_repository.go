package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

// ExchangeRateRepository is the shared rate cache. The composite primary key
// makes concurrent upserts of the same (from, to, date) collapse into one
// row; both writers carry the same value so the overwrite is harmless.
type ExchangeRateRepository struct {
	db *sql.DB
}

func NewExchangeRateRepository(db *sql.DB) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db}
}

func (r *ExchangeRateRepository) Get(ctx context.Context, currencyFrom, currencyTo, rateDate string) (*domain.ExchangeRate, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT currency_from, currency_to, rate_date::text, rate, source
FROM exchange_rates
WHERE currency_from = $1 AND currency_to = $2 AND rate_date = $3
`, currencyFrom, currencyTo, rateDate)

	var rec domain.ExchangeRate
	var source string
	err := row.Scan(&rec.CurrencyFrom, &rec.CurrencyTo, &rec.RateDate, &rec.Rate, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exchange rate: %w", err)
	}
	rec.Source = domain.RateSource(source)
	return &rec, nil
}

func (r *ExchangeRateRepository) Upsert(ctx context.Context, rate domain.ExchangeRate) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO exchange_rates (currency_from, currency_to, rate_date, rate, source, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (currency_from, currency_to, rate_date)
DO UPDATE SET rate = EXCLUDED.rate, source = EXCLUDED.source
`,
		rate.CurrencyFrom, rate.CurrencyTo, rate.RateDate, rate.Rate, string(rate.Source), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert exchange rate: %w", err)
	}
	return nil
}
