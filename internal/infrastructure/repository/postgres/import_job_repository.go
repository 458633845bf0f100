package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

type ImportJobRepository struct {
	db *sql.DB
}

func NewImportJobRepository(db *sql.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

func (r *ImportJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	request, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal job request: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO import_jobs (id, request, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		job.ID, request, string(job.Status), nullString(job.Error), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) GetByID(ctx context.Context, id string) (*domain.ImportJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, request, status, result, error_message, created_at, updated_at
FROM import_jobs
WHERE id = $1
`, id)

	var job domain.ImportJob
	var request []byte
	var result []byte
	var status string
	var errMessage sql.NullString

	err := row.Scan(&job.ID, &request, &status, &result, &errMessage, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}

	if err := json.Unmarshal(request, &job.Request); err != nil {
		return nil, fmt.Errorf("unmarshal job request: %w", err)
	}
	if len(result) > 0 {
		job.Result = &domain.PipelineResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal job result: %w", err)
		}
	}
	job.Status = domain.ImportStatus(status)
	job.Error = fromNullString(errMessage)
	return &job, nil
}

func (r *ImportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.ImportProcessing)
}

func (r *ImportJobRepository) SaveResult(ctx context.Context, id string, result *domain.PipelineResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal job result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
UPDATE import_jobs
SET status = $2, result = $3, error_message = NULL, updated_at = $4
WHERE id = $1
`, id, string(domain.ImportDone), payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save job result: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) MarkFailed(ctx context.Context, id string, errMessage string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE import_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(domain.ImportFailed), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) setStatus(ctx context.Context, id string, status domain.ImportStatus) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE import_jobs
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}
