package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

func TestImportJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	job := &domain.ImportJob{
		ID:        "j-1",
		Request:   domain.ImportRequest{PDFText: "text", CompanyID: "c-1", FileName: "a.pdf"},
		Status:    domain.ImportQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO import_jobs")).
		WithArgs("j-1", sqlmock.AnyArg(), "queued", sqlmock.AnyArg(), now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewImportJobRepository(db)
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "request", "status", "result", "error_message", "created_at", "updated_at"}).
		AddRow("j-1", []byte(`{"pdf_text":"text","file_name":"a.pdf","company_id":"c-1","user_id":""}`),
			"done", []byte(`{"extraction":null,"document_type":"expense","vendor_match":null,"tax_classification":null,"currency_conversion":null,"recurring":{"detected":false,"frequency":null,"suggested_next_date":null}}`),
			nil, now, now)
	mock.ExpectQuery("FROM import_jobs").WithArgs("j-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "j-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.ImportDone || got.Request.CompanyID != "c-1" {
		t.Errorf("job = %+v", got)
	}
	if got.Result == nil || got.Result.DocumentType != domain.DocExpense {
		t.Errorf("result = %+v", got.Result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportJobRepositoryGetByID_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM import_jobs").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "request", "status", "result", "error_message", "created_at", "updated_at"}))

	repo := NewImportJobRepository(db)
	got, err := repo.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestImportJobRepositoryStatusTransitions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, updated_at = $3")).
		WithArgs("j-1", "processing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, result = $3")).
		WithArgs("j-1", "done", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, error_message = $3")).
		WithArgs("j-1", "failed", "model unavailable", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewImportJobRepository(db)
	if err := repo.MarkProcessing(context.Background(), "j-1"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := repo.SaveResult(context.Background(), "j-1", &domain.PipelineResult{DocumentType: domain.DocExpense}); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := repo.MarkFailed(context.Background(), "j-1", "model unavailable"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
