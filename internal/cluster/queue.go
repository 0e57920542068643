package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/repo"
	"github.com/shaiso/Seqflow/internal/scheduler"
)

// JobStore — хранилище заданий очереди (repo.JobRepo).
type JobStore interface {
	Create(ctx context.Context, job *domain.QueueJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueJob, error)
	RequestCancel(ctx context.Context, id uuid.UUID) error
}

// JobPublisher публикует события о новых заданиях (mq.Publisher).
type JobPublisher interface {
	PublishJobSubmitted(ctx context.Context, jobID uuid.UUID, name string) error
}

// QueueConfig — конфигурация QueueBackend.
type QueueConfig struct {
	Store     JobStore
	Publisher JobPublisher
	Logger    *slog.Logger
}

// QueueBackend отправляет task в очередь seqflow-worker.
//
// Задание записывается в таблицу jobs, затем публикуется событие
// job.submitted. Статус читается из таблицы. Идентификатор задания —
// UUID строки.
type QueueBackend struct {
	store     JobStore
	publisher JobPublisher
	logger    *slog.Logger
}

// NewQueueBackend создаёт QueueBackend.
func NewQueueBackend(cfg QueueConfig) *QueueBackend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueBackend{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}

// SubmitJob создаёт задание и публикует событие.
//
// Ошибка публикации только логируется: worker подберёт задание
// опросом таблицы. Без Publisher события не публикуются.
func (b *QueueBackend) SubmitJob(ctx context.Context, req scheduler.JobRequest) (scheduler.JobHandle, error) {
	if len(req.Command) == 0 {
		return "", ErrEmptyCommand
	}

	job := domain.NewQueueJob(req.Name, req.Command)
	job.TaskDir = req.TaskDir
	job.TaskID = req.TaskID
	job.MemoryMB = req.MemoryMB
	job.Processors = req.Processors

	if err := b.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job %s: %w", req.Name, err)
	}

	if b.publisher == nil {
		return scheduler.JobHandle(job.ID.String()), nil
	}
	if err := b.publisher.PublishJobSubmitted(ctx, job.ID, job.Name); err != nil {
		b.logger.Warn("failed to publish job, worker will pick it up by polling",
			"job_id", job.ID,
			"error", err,
		)
	}

	return scheduler.JobHandle(job.ID.String()), nil
}

// StatusJob читает статус задания из таблицы.
func (b *QueueBackend) StatusJob(ctx context.Context, handle scheduler.JobHandle) (scheduler.JobStatus, error) {
	id, err := parseHandle(handle)
	if err != nil {
		return scheduler.JobStatus{}, err
	}

	job, err := b.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return scheduler.JobStatus{State: scheduler.JobUnknown}, fmt.Errorf("%w: %s", ErrUnknownJob, handle)
		}
		return scheduler.JobStatus{}, err
	}

	switch job.Status {
	case domain.JobStatusWaiting:
		return scheduler.JobStatus{State: scheduler.JobWaiting}, nil
	case domain.JobStatusRunning:
		return scheduler.JobStatus{State: scheduler.JobRunning}, nil
	case domain.JobStatusComplete:
		return scheduler.JobStatus{
			State:    scheduler.JobComplete,
			ExitCode: job.ExitCode,
			Message:  job.Error,
		}, nil
	default:
		return scheduler.JobStatus{State: scheduler.JobUnknown}, nil
	}
}

// StopJob запрашивает отмену. Ожидающее задание завершается сразу,
// выполняющееся останавливает worker.
func (b *QueueBackend) StopJob(ctx context.Context, handle scheduler.JobHandle) error {
	id, err := parseHandle(handle)
	if err != nil {
		return err
	}
	return b.store.RequestCancel(ctx, id)
}

func parseHandle(handle scheduler.JobHandle) (uuid.UUID, error) {
	id, err := uuid.Parse(string(handle))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrInvalidHandle, handle)
	}
	return id, nil
}
