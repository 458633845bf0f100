package ports

import (
	"context"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

// InvoiceImporter runs the full pipeline synchronously.
type InvoiceImporter interface {
	Import(ctx context.Context, req domain.ImportRequest) (*domain.PipelineResult, error)
}

// ImportEnqueuer accepts a request, persists it and hands it to the queue.
type ImportEnqueuer interface {
	Enqueue(ctx context.Context, req domain.ImportRequest) (*domain.ImportJob, error)
	GetJob(ctx context.Context, id string) (*domain.ImportJob, error)
}

// JobProcessor is driven by the queue consumer in the worker binary.
type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}
