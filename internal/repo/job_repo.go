package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Seqflow/internal/domain"
)

// JobRepo — репозиторий заданий очереди.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `
	id, name, command, task_dir, task_id, memory_mb, processors, status,
	exit_code, cancel_requested, worker_id, error, created_at, started_at, finished_at`

// Create создаёт новое задание.
func (r *JobRepo) Create(ctx context.Context, job *domain.QueueJob) error {
	commandJSON, err := json.Marshal(job.Command)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	query := `
		INSERT INTO jobs (id, name, command, task_dir, task_id, memory_mb, processors, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.Name,
		commandJSON,
		job.TaskDir,
		job.TaskID,
		job.MemoryMB,
		job.Processors,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает задание по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return scanJob(r.pool.QueryRow(ctx, query, id))
}

// Claim переводит ожидающее задание в RUNNING для worker'а.
// Возвращает ErrInvalidState, если задание уже взято или завершено.
func (r *JobRepo) Claim(ctx context.Context, id uuid.UUID, workerID string) (*domain.QueueJob, error) {
	query := `
		UPDATE jobs
		SET status = $3, worker_id = $2, started_at = now()
		WHERE id = $1 AND status = $4
		RETURNING ` + jobColumns
	job, err := scanJob(r.pool.QueryRow(ctx, query, id, workerID, domain.JobStatusRunning, domain.JobStatusWaiting))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: job %s is not waiting", ErrInvalidState, id)
	}
	return job, err
}

// Complete записывает код завершения задания.
func (r *JobRepo) Complete(ctx context.Context, id uuid.UUID, exitCode int, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $2, exit_code = $3, error = $4, finished_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, domain.JobStatusComplete, exitCode, nullString(errMsg))
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequestCancel помечает задание для отмены.
//
// Ожидающее задание завершается сразу с ExitCodeCancelled: worker его уже
// не возьмёт. Выполняющееся задание отменяет worker.
func (r *JobRepo) RequestCancel(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `UPDATE jobs SET cancel_requested = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE jobs
		SET status = $2, exit_code = $3, error = 'cancelled before start', finished_at = now()
		WHERE id = $1 AND status = $4
	`, id, domain.JobStatusComplete, domain.ExitCodeCancelled, domain.JobStatusWaiting)
	if err != nil {
		return fmt.Errorf("cancel waiting job: %w", err)
	}

	return tx.Commit(ctx)
}

// IsCancelRequested проверяет флаг отмены.
func (r *JobRepo) IsCancelRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	var requested bool
	err := r.pool.QueryRow(ctx, `SELECT cancel_requested FROM jobs WHERE id = $1`, id).Scan(&requested)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("get cancel flag: %w", err)
	}
	return requested, nil
}

// ListWaiting возвращает ожидающие задания в порядке создания.
func (r *JobRepo) ListWaiting(ctx context.Context, limit int) ([]domain.QueueJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1 AND NOT cancel_requested
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, domain.JobStatusWaiting, limit)
	if err != nil {
		return nil, fmt.Errorf("list waiting jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.QueueJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// --- Helpers ---

func scanJob(row pgx.Row) (*domain.QueueJob, error) {
	var job domain.QueueJob
	var commandJSON []byte
	var workerID, jobError *string

	err := row.Scan(
		&job.ID,
		&job.Name,
		&commandJSON,
		&job.TaskDir,
		&job.TaskID,
		&job.MemoryMB,
		&job.Processors,
		&job.Status,
		&job.ExitCode,
		&job.CancelRequested,
		&workerID,
		&jobError,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal(commandJSON, &job.Command); err != nil {
		return nil, fmt.Errorf("unmarshal command: %w", err)
	}
	if workerID != nil {
		job.WorkerID = *workerID
	}
	if jobError != nil {
		job.Error = *jobError
	}

	return &job, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
