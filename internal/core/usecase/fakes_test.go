package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type chatReply struct {
	content string
	err     error
}

type fakeChat struct {
	replies []chatReply
	calls   []ports.ChatRequest
}

func (f *fakeChat) Complete(_ context.Context, req ports.ChatRequest) (ports.ChatResult, error) {
	f.calls = append(f.calls, req)
	if len(f.replies) == 0 {
		return ports.ChatResult{}, fmt.Errorf("no scripted reply")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if r.err != nil {
		return ports.ChatResult{}, r.err
	}
	return ports.ChatResult{Content: r.content}, nil
}

type fakeVendorRepo struct {
	byVAT       map[string]*domain.VendorRecord
	byName      []domain.VendorRecord
	byFirstWord []domain.VendorRecord
	created     []*domain.VendorRecord
	err         error
}

func (f *fakeVendorRepo) FindByVAT(_ context.Context, _, vat string) (*domain.VendorRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byVAT[vat], nil
}

func (f *fakeVendorRepo) SearchByName(_ context.Context, _, _ string, _ int) ([]domain.VendorRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byName, nil
}

func (f *fakeVendorRepo) SearchByFirstWord(_ context.Context, _, _ string, _ int) ([]domain.VendorRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byFirstWord, nil
}

func (f *fakeVendorRepo) Create(_ context.Context, rec *domain.VendorRecord) error {
	if f.err != nil {
		return f.err
	}
	rec.ID = fmt.Sprintf("vendor-%d", len(f.created)+1)
	f.created = append(f.created, rec)
	return nil
}

type fakeTaxRateRepo struct {
	records []domain.TaxRateRecord
	err     error
}

func (f *fakeTaxRateRepo) ListActive(_ context.Context, _ string) ([]domain.TaxRateRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type rateCacheKey struct {
	from, to, date string
}

type fakeRateCache struct {
	rates    map[rateCacheKey]domain.ExchangeRate
	getErr   error
	upserted []domain.ExchangeRate
}

func newFakeRateCache() *fakeRateCache {
	return &fakeRateCache{rates: make(map[rateCacheKey]domain.ExchangeRate)}
}

func (f *fakeRateCache) Get(_ context.Context, from, to, date string) (*domain.ExchangeRate, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if r, ok := f.rates[rateCacheKey{from, to, date}]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeRateCache) Upsert(_ context.Context, rate domain.ExchangeRate) error {
	f.rates[rateCacheKey{rate.CurrencyFrom, rate.CurrencyTo, rate.RateDate}] = rate
	f.upserted = append(f.upserted, rate)
	return nil
}

type fakeRateFeed struct {
	quote float64
	err   error
	calls int
}

func (f *fakeRateFeed) Quote(_ context.Context, _, _ string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.quote, nil
}

type fakeJobRepo struct {
	jobs map[string]*domain.ImportJob
	err  error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.ImportJob)}
}

func (f *fakeJobRepo) Create(_ context.Context, job *domain.ImportJob) error {
	if f.err != nil {
		return f.err
	}
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id string) (*domain.ImportJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobRepo) MarkProcessing(_ context.Context, id string) error {
	f.jobs[id].Status = domain.ImportProcessing
	return nil
}

func (f *fakeJobRepo) SaveResult(_ context.Context, id string, result *domain.PipelineResult) error {
	f.jobs[id].Status = domain.ImportDone
	f.jobs[id].Result = result
	return nil
}

func (f *fakeJobRepo) MarkFailed(_ context.Context, id string, msg string) error {
	f.jobs[id].Status = domain.ImportFailed
	f.jobs[id].Error = msg
	return nil
}

type fakeQueue struct {
	published []string
	err       error
}

func (f *fakeQueue) PublishImportQueued(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, jobID)
	return nil
}

func (f *fakeQueue) SubscribeImportQueued(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}
