package ports

import (
	"context"
	"io"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

type ModelTier string

const (
	ModelPrimary  ModelTier = "primary"
	ModelFallback ModelTier = "fallback"
)

// ChatRequest is a single completion call. ForceJSON asks the provider to
// constrain output to a JSON object; some prompts extract better without it.
type ChatRequest struct {
	System    string
	Prompt    string
	Model     ModelTier
	ForceJSON bool
}

type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ChatCompleter is the language-model completion service. Any provider that
// can answer system+user messages, optionally forcing JSON output, fits.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// VendorRepository reads and creates vendor records scoped by company.
type VendorRepository interface {
	FindByVAT(ctx context.Context, companyID, vatNumber string) (*domain.VendorRecord, error)
	SearchByName(ctx context.Context, companyID, name string, limit int) ([]domain.VendorRecord, error)
	SearchByFirstWord(ctx context.Context, companyID, word string, limit int) ([]domain.VendorRecord, error)
	Create(ctx context.Context, rec *domain.VendorRecord) error
}

// TaxRateRepository lists the company's configured tax rates, default first.
type TaxRateRepository interface {
	ListActive(ctx context.Context, companyID string) ([]domain.TaxRateRecord, error)
}

// ExchangeRateCache is the only shared mutable state in the pipeline. Upsert
// is keyed (currency_from, currency_to, rate_date); concurrent writers for
// the same key store identical values, so last-write-wins is benign.
type ExchangeRateCache interface {
	Get(ctx context.Context, currencyFrom, currencyTo, rateDate string) (*domain.ExchangeRate, error)
	Upsert(ctx context.Context, rate domain.ExchangeRate) error
}

// RateFeed quotes foreign currency units per one home unit for a date. A feed
// that cannot serve the requested date may document itself as latest-only.
type RateFeed interface {
	Quote(ctx context.Context, currency, date string) (float64, error)
}

// ImportJobRepository persists queued pipeline invocations.
type ImportJobRepository interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	GetByID(ctx context.Context, id string) (*domain.ImportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	SaveResult(ctx context.Context, id string, result *domain.PipelineResult) error
	MarkFailed(ctx context.Context, id string, errMessage string) error
}

// ImportQueue publishes/consumes queued import job ids.
type ImportQueue interface {
	PublishImportQueued(ctx context.Context, jobID string) error
	SubscribeImportQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage archives source documents for later review.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}
