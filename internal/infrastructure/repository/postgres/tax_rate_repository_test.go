package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestTaxRateRepositoryListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "rate", "is_default"}).
		AddRow("tr-1", "Standard", 21.0, true).
		AddRow("tr-2", "Reduced", 9.0, false).
		AddRow("tr-3", "Zero", 0.0, false)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tax_rates")).
		WithArgs("c-1").
		WillReturnRows(rows)

	repo := NewTaxRateRepository(db)
	records, err := repo.ListActive(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if !records[0].IsDefault || records[0].Rate != 21 {
		t.Fatalf("expected default standard rate first, got %+v", records[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTaxRateRepositoryListActive_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tax_rates")).
		WithArgs("c-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "rate", "is_default"}))

	repo := NewTaxRateRepository(db)
	records, err := repo.ListActive(context.Background(), "c-2")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}
