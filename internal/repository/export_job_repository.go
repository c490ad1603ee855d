package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

// ExportJobRepository manages async report job rows.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs an ExportJobRepository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a queued export job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	const query = `INSERT INTO export_jobs (id, type, format, month, status, file_path, error_msg, created_by, created_at, finished_at)
        VALUES (:id, :type, :format, :month, :status, :file_path, :error_msg, :created_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID fetches an export job by ID.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, type, format, month, status, file_path, error_msg, created_by, created_at, finished_at
        FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// SetRunning marks a job as in progress.
func (r *ExportJobRepository) SetRunning(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE export_jobs SET status = $2 WHERE id = $1", id, models.ExportStatusRunning); err != nil {
		return fmt.Errorf("set export job running: %w", err)
	}
	return nil
}

// SetDone marks a job as finished with its generated file path.
func (r *ExportJobRepository) SetDone(ctx context.Context, id, filePath string, finishedAt time.Time) error {
	const query = `UPDATE export_jobs SET status = $2, file_path = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusDone, filePath, finishedAt); err != nil {
		return fmt.Errorf("set export job done: %w", err)
	}
	return nil
}

// SetFailed marks a job as failed with the error message.
func (r *ExportJobRepository) SetFailed(ctx context.Context, id, errMsg string, finishedAt time.Time) error {
	const query = `UPDATE export_jobs SET status = $2, error_msg = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFailed, errMsg, finishedAt); err != nil {
		return fmt.Errorf("set export job failed: %w", err)
	}
	return nil
}
