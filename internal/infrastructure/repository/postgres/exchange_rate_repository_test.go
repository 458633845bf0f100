package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

func TestExchangeRateRepositoryGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"currency_from", "currency_to", "rate_date", "rate", "source"}).
		AddRow("USD", "EUR", "2024-03-15", 0.92, "primary_feed")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE currency_from = $1 AND currency_to = $2 AND rate_date = $3")).
		WithArgs("USD", "EUR", "2024-03-15").
		WillReturnRows(rows)

	repo := NewExchangeRateRepository(db)
	rate, err := repo.Get(context.Background(), "USD", "EUR", "2024-03-15")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rate == nil || rate.Rate != 0.92 || rate.Source != domain.RateSourcePrimary {
		t.Errorf("rate = %+v", rate)
	}
}

func TestExchangeRateRepositoryGet_Miss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM exchange_rates").
		WithArgs("USD", "EUR", "2024-03-16").
		WillReturnRows(sqlmock.NewRows([]string{"currency_from", "currency_to", "rate_date", "rate", "source"}))

	repo := NewExchangeRateRepository(db)
	rate, err := repo.Get(context.Background(), "USD", "EUR", "2024-03-16")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rate != nil {
		t.Errorf("expected nil on cache miss, got %+v", rate)
	}
}

func TestExchangeRateRepositoryUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (currency_from, currency_to, rate_date)")).
		WithArgs("USD", "EUR", "2024-03-15", 0.92, "primary_feed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewExchangeRateRepository(db)
	err = repo.Upsert(context.Background(), domain.ExchangeRate{
		CurrencyFrom: "USD",
		CurrencyTo:   "EUR",
		RateDate:     "2024-03-15",
		Rate:         0.92,
		Source:       domain.RateSourcePrimary,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
