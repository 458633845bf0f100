package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

type fakeImporter struct {
	result  *domain.PipelineResult
	err     error
	lastReq domain.ImportRequest
}

func (f *fakeImporter) Import(_ context.Context, req domain.ImportRequest) (*domain.PipelineResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEnqueuer struct {
	job    *domain.ImportJob
	getJob *domain.ImportJob
	err    error
	getErr error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, _ domain.ImportRequest) (*domain.ImportJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *fakeEnqueuer) GetJob(_ context.Context, _ string) (*domain.ImportJob, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getJob, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

type fakeStorage struct {
	saved map[string][]byte
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = b
	return nil
}

func (f *fakeStorage) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func testRouter(importer *fakeImporter, enqueuer *fakeEnqueuer, extractor *fakeExtractor, storage *fakeStorage) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(importer, enqueuer, extractor, storage, nil, "api", log).Handler()
}

func samplePipelineResult() *domain.PipelineResult {
	return &domain.PipelineResult{
		Extraction: &domain.ExtractionResult{
			Vendor:  domain.Vendor{Name: "Acme BV"},
			Invoice: domain.Invoice{Number: "INV-1", Currency: "EUR", Total: 121},
		},
		DocumentType: domain.DocExpense,
		VendorMatch:  &domain.VendorMatch{ID: "v-1", MatchType: domain.MatchExactVAT, Confidence: 0.99},
	}
}

func TestHealthz(t *testing.T) {
	handler := testRouter(&fakeImporter{}, &fakeEnqueuer{}, &fakeExtractor{}, &fakeStorage{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id header")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	handler := testRouter(&fakeImporter{}, &fakeEnqueuer{}, &fakeExtractor{}, &fakeStorage{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id = %q, want the caller's id echoed", got)
	}
}

func TestImportSync(t *testing.T) {
	importer := &fakeImporter{result: samplePipelineResult()}
	handler := testRouter(importer, &fakeEnqueuer{}, &fakeExtractor{}, &fakeStorage{})

	body := `{"pdf_text":"Invoice text","company_id":"c-1","user_id":"u-1"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if importer.lastReq.CompanyID != "c-1" {
		t.Fatalf("company id = %q, want c-1", importer.lastReq.CompanyID)
	}

	var result struct {
		Success bool `json:"success"`
		domain.PipelineResult
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success true")
	}
	if result.Extraction.Vendor.Name != "Acme BV" {
		t.Fatalf("vendor = %q, want Acme BV", result.Extraction.Vendor.Name)
	}
}

func TestImportSyncInvalidBody(t *testing.T) {
	handler := testRouter(&fakeImporter{}, &fakeEnqueuer{}, &fakeExtractor{}, &fakeStorage{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestImportSyncExtractionFailure(t *testing.T) {
	importer := &fakeImporter{err: domain.WrapError(domain.ErrExtractionFailed, "extract", errors.New("model unavailable"))}
	handler := testRouter(importer, &fakeEnqueuer{}, &fakeExtractor{}, &fakeStorage{})

	body := `{"pdf_text":"Invoice text","company_id":"c-1"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(body)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error == "" {
		t.Fatalf("expected failure envelope, got %+v", resp)
	}
}

func TestImportUpload(t *testing.T) {
	importer := &fakeImporter{result: samplePipelineResult()}
	storage := &fakeStorage{}
	extractor := &fakeExtractor{text: "Invoice INV-1 total 121.00"}
	handler := testRouter(importer, &fakeEnqueuer{}, extractor, storage)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "invoice.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 fake")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.WriteField("company_id", "c-1")
	_ = mw.WriteField("payment_date", "2026-02-01")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/imports/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if importer.lastReq.PDFText != "Invoice INV-1 total 121.00" {
		t.Fatalf("pipeline got text %q", importer.lastReq.PDFText)
	}
	if importer.lastReq.PaymentDate != "2026-02-01" {
		t.Fatalf("payment date = %q", importer.lastReq.PaymentDate)
	}
	if len(storage.saved) != 1 {
		t.Fatalf("expected one archived document, got %d", len(storage.saved))
	}
	for key := range storage.saved {
		if !strings.HasSuffix(key, ".pdf") {
			t.Fatalf("archive key %q missing extension", key)
		}
	}
}

func TestImportUploadMissingFile(t *testing.T) {
	handler := testRouter(&fakeImporter{}, &fakeEnqueuer{}, &fakeExtractor{}, &fakeStorage{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("company_id", "c-1")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/imports/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestImportQueue(t *testing.T) {
	enqueuer := &fakeEnqueuer{job: &domain.ImportJob{ID: "job-1", Status: domain.ImportQueued}}
	handler := testRouter(&fakeImporter{}, enqueuer, &fakeExtractor{}, &fakeStorage{})

	body := `{"pdf_text":"Invoice text","company_id":"c-1"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/imports/queue", strings.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var job domain.ImportJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.ID != "job-1" || job.Status != domain.ImportQueued {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestImportQueueTemporaryFailure(t *testing.T) {
	enqueuer := &fakeEnqueuer{err: domain.WrapError(domain.ErrTemporary, "publish", errors.New("nats down"))}
	handler := testRouter(&fakeImporter{}, enqueuer, &fakeExtractor{}, &fakeStorage{})

	body := `{"pdf_text":"Invoice text","company_id":"c-1"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/imports/queue", strings.NewReader(body)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGetImportJob(t *testing.T) {
	enqueuer := &fakeEnqueuer{getJob: &domain.ImportJob{ID: "job-1", Status: domain.ImportDone}}
	handler := testRouter(&fakeImporter{}, enqueuer, &fakeExtractor{}, &fakeStorage{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/imports/job-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetImportJobNotFound(t *testing.T) {
	enqueuer := &fakeEnqueuer{getErr: domain.WrapError(domain.ErrNotFound, "get job", errors.New("no such job"))}
	handler := testRouter(&fakeImporter{}, enqueuer, &fakeExtractor{}, &fakeStorage{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/imports/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
