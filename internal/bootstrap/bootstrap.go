package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avanleeuwen/invoice-pipeline/internal/config"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/usecase"
	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/extractor/pdftext"
	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/llm/openaichat"
	natsqueue "github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/queue/nats"
	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/rates"
	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/repository/postgres"
	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/resilience"
	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/storage/localfs"
	"github.com/avanleeuwen/invoice-pipeline/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue     ports.ImportQueue
	Jobs      ports.ImportJobRepository
	Importer  ports.InvoiceImporter
	Enqueuer  ports.ImportEnqueuer
	Processor ports.JobProcessor
	Extractor ports.TextExtractor
	Storage   ports.ObjectStorage

	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	vendors := postgres.NewVendorRepository(db)
	taxRates := postgres.NewTaxRateRepository(db)
	rateCache := postgres.NewExchangeRateRepository(db)
	jobs := postgres.NewImportJobRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		Executor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(service)

	chat := openaichat.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMPrimaryModel, cfg.LLMFallbackModel, openaichat.Options{
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     90 * time.Second,
		Executor:    executor,
		RecordTokens: func(model string, promptTokens, completionTokens int) {
			httpMetrics.RecordTokenUsage(service, model, promptTokens, completionTokens)
		},
	})

	primaryFeed := rates.NewHistoricalFeed(cfg.RatesHistoricalURL, executor)
	fallbackFeed := rates.NewLatestFeed(cfg.RatesLatestURL, executor)

	extract := usecase.NewExtractInvoice(chat, cfg.HomeCountry, log)
	resolveVendor := usecase.NewResolveVendor(vendors, log)
	classifyTax := usecase.NewClassifyTax(taxRates, cfg.StandardTaxRate, log)
	convertCurrency := usecase.NewConvertCurrency(rateCache, primaryFeed, fallbackFeed, cfg.HomeCurrency, log)
	detectRecurrence := usecase.NewDetectRecurrence()

	pipeline := usecase.NewImportPipeline(extract, resolveVendor, classifyTax, convertCurrency, detectRecurrence, log)
	enqueuer := usecase.NewEnqueueImport(jobs, queue, log)
	processor := usecase.NewProcessImportJob(jobs, pipeline, log)

	return &App{
		Config: cfg,

		Queue:     queue,
		Jobs:      jobs,
		Importer:  pipeline,
		Enqueuer:  enqueuer,
		Processor: processor,
		Extractor: pdftext.New(),
		Storage:   storage,

		HTTPMetrics: httpMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
