package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
)

// EnqueueImport persists an import request as a job and announces it on the
// queue. The HTTP layer returns the job id immediately; the worker picks the
// job up from the announcement.
type EnqueueImport struct {
	jobs  ports.ImportJobRepository
	queue ports.ImportQueue
	log   *slog.Logger
}

func NewEnqueueImport(jobs ports.ImportJobRepository, queue ports.ImportQueue, log *slog.Logger) *EnqueueImport {
	return &EnqueueImport{jobs: jobs, queue: queue, log: log}
}

func (uc *EnqueueImport) Enqueue(ctx context.Context, req domain.ImportRequest) (*domain.ImportJob, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	job := &domain.ImportJob{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    domain.ImportQueued,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	if err := uc.queue.PublishImportQueued(ctx, job.ID); err != nil {
		// The job row exists; a sweeper or manual retry can still pick it up.
		uc.log.ErrorContext(ctx, "publish import job failed", "job_id", job.ID, "error", err)
		return nil, domain.WrapError(domain.ErrTemporary, "enqueue import", err)
	}
	uc.log.InfoContext(ctx, "import job queued", "job_id", job.ID, "company_id", req.CompanyID)
	return job, nil
}

func (uc *EnqueueImport) GetJob(ctx context.Context, id string) (*domain.ImportJob, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get import job", fmt.Errorf("job %s", id))
	}
	return job, nil
}

// ProcessImportJob is the worker-side counterpart: it loads a queued job,
// runs the pipeline and records the outcome on the job row.
type ProcessImportJob struct {
	jobs     ports.ImportJobRepository
	pipeline *ImportPipeline
	log      *slog.Logger
}

func NewProcessImportJob(jobs ports.ImportJobRepository, pipeline *ImportPipeline, log *slog.Logger) *ProcessImportJob {
	return &ProcessImportJob{jobs: jobs, pipeline: pipeline, log: log}
}

func (uc *ProcessImportJob) ProcessJob(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load import job: %w", err)
	}
	if job == nil {
		return domain.WrapError(domain.ErrNotFound, "process import job", fmt.Errorf("job %s", jobID))
	}
	if job.Status == domain.ImportDone {
		// Queue redelivery after a crash between SaveResult and ack.
		uc.log.InfoContext(ctx, "import job already done, skipping", "job_id", jobID)
		return nil
	}

	if err := uc.jobs.MarkProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	result, err := uc.pipeline.Import(ctx, job.Request)
	if err != nil {
		uc.log.ErrorContext(ctx, "import job failed", "job_id", jobID, "error", err)
		if merr := uc.jobs.MarkFailed(ctx, jobID, err.Error()); merr != nil {
			return fmt.Errorf("mark job failed: %w", merr)
		}
		// Permanent failures are recorded, not retried by the queue.
		if domain.IsKind(err, domain.ErrTemporary) {
			return err
		}
		return nil
	}

	if err := uc.jobs.SaveResult(ctx, jobID, result); err != nil {
		return fmt.Errorf("save job result: %w", err)
	}
	uc.log.InfoContext(ctx, "import job done", "job_id", jobID)
	return nil
}
