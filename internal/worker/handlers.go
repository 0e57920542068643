package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/mq"
	"github.com/shaiso/Seqflow/internal/repo"
)

const (
	completeTimeout         = 30 * time.Second
	completeInitialInterval = 200 * time.Millisecond
	exitCodeExecutorError   = 1
)

// Итог задания для метрик.
const (
	resultSucceeded = "succeeded"
	resultFailed    = "failed"
	resultCancelled = "cancelled"
)

// handleJobSubmitted обрабатывает событие о новом задании из очереди jobs.submitted.
func (w *Worker) handleJobSubmitted(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobSubmittedPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse job.submitted payload", "error", err)
		return fmt.Errorf("%w: %v", mq.ErrPermanent, err)
	}

	w.logger.Debug("received job.submitted event",
		"job_id", payload.JobID,
		"job", payload.Name,
	)

	if err := w.processJob(ctx, payload.JobID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotWaiting) {
			w.logger.Debug("job not processed", "job_id", payload.JobID, "reason", err)
			return nil
		}
		return err
	}
	return nil
}

// processJob ждёт свободный слот, забирает задание и запускает его
// в отдельной горутине.
func (w *Worker) processJob(ctx context.Context, id uuid.UUID) error {
	if err := w.slots.Acquire(ctx, 1); err != nil {
		return err
	}

	job, err := w.store.Claim(ctx, id, w.workerID)
	if err != nil {
		w.slots.Release(1)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return fmt.Errorf("%w: %s", ErrJobNotFound, id)
		case errors.Is(err, repo.ErrInvalidState):
			return fmt.Errorf("%w: %s", ErrJobNotWaiting, id)
		default:
			return fmt.Errorf("claim job: %w", err)
		}
	}

	w.jobsWg.Add(1)
	go func() {
		defer w.jobsWg.Done()
		defer w.slots.Release(1)
		w.runJob(ctx, job)
	}()
	return nil
}

// runJob выполняет задание и записывает код завершения.
func (w *Worker) runJob(ctx context.Context, job *domain.QueueJob) {
	logger := w.logger.With("job_id", job.ID, "job", job.Name)
	logger.Info("job started", "task_dir", job.TaskDir, "task_id", job.TaskID)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cancelled atomic.Bool
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		w.watchCancel(jobCtx, job.ID, func() {
			cancelled.Store(true)
			cancel()
		})
	}()

	startedAt := time.Now()
	result, execErr := w.executor.Execute(jobCtx, job)
	cancel()
	<-watchDone

	exitCode, errMsg := 0, ""
	switch {
	case cancelled.Load():
		exitCode, errMsg = domain.ExitCodeCancelled, ErrJobCancelled.Error()
	case ctx.Err() != nil:
		exitCode, errMsg = domain.ExitCodeCancelled, ErrWorkerStopped.Error()
	case execErr != nil:
		exitCode, errMsg = exitCodeExecutorError, execErr.Error()
	case result != nil:
		exitCode, errMsg = result.ExitCode, result.Error
	}

	outcome := resultSucceeded
	switch {
	case exitCode == domain.ExitCodeCancelled:
		outcome = resultCancelled
	case exitCode != 0:
		outcome = resultFailed
	}
	w.metrics.WorkerJob(outcome)

	if err := w.complete(ctx, job.ID, exitCode, errMsg); err != nil {
		logger.Error("failed to record job completion", "exit_code", exitCode, "error", err)
		return
	}

	logger.Info("job finished",
		"exit_code", exitCode,
		"result", outcome,
		"duration", time.Since(startedAt),
	)
}

// watchCancel периодически проверяет запрос отмены задания.
func (w *Worker) watchCancel(ctx context.Context, id uuid.UUID, onCancel func()) {
	ticker := time.NewTicker(w.cancelInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := w.store.IsCancelRequested(ctx, id)
			if err != nil {
				if ctx.Err() == nil {
					w.logger.Warn("failed to check job cancellation", "job_id", id, "error", err)
				}
				continue
			}
			if requested {
				w.logger.Info("job cancellation requested", "job_id", id)
				onCancel()
				return
			}
		}
	}
}

// complete записывает код завершения с повторами.
//
// Запись выполняется и после остановки worker'а: планировщик ждёт COMPLETE.
func (w *Worker) complete(ctx context.Context, id uuid.UUID, exitCode int, errMsg string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completeTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = completeInitialInterval

	op := func() error {
		err := w.store.Complete(ctx, id, exitCode, errMsg)
		if errors.Is(err, repo.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, defaultCompleteTries), ctx))
}
