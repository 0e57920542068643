package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/telemetry"
)

// LocalConfig — конфигурация LocalScheduler.
type LocalConfig struct {
	// Threads — число одновременно занятых процессоров (default: runtime.NumCPU()).
	Threads int

	// Runner выполняет task.
	Runner *TaskRunner

	OnResult ResultHandler
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

// LocalScheduler выполняет task в горутинах текущего процесса.
//
// Параллелизм ограничен семафором: task занимает столько единиц, сколько
// процессоров требует его шаг (не больше Threads).
type LocalScheduler struct {
	base    *Base
	runner  *TaskRunner
	sem     *semaphore.Weighted
	threads int64
}

// NewLocal создаёт LocalScheduler.
func NewLocal(cfg LocalConfig) *LocalScheduler {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	return &LocalScheduler{
		base: NewBase(BaseConfig{
			Name:     "local",
			OnResult: cfg.OnResult,
			Metrics:  cfg.Metrics,
			Logger:   cfg.Logger,
		}),
		runner:  cfg.Runner,
		sem:     semaphore.NewWeighted(int64(threads)),
		threads: int64(threads),
	}
}

// Start запускает планировщик.
func (s *LocalScheduler) Start(ctx context.Context) error {
	return s.base.Start(ctx)
}

// Submit запускает task в отдельной горутине.
func (s *LocalScheduler) Submit(step *engine.Step, tc *domain.TaskContext) error {
	taskCtx, err := s.base.Submit(step, tc)
	if err != nil {
		return err
	}

	s.base.Go(func() {
		s.run(taskCtx, tc)
	})
	return nil
}

func (s *LocalScheduler) run(ctx context.Context, tc *domain.TaskContext) {
	var result *domain.TaskResult
	defer func() {
		s.base.AfterExecuteTask(tc, result)
	}()

	weight := s.weight(tc)
	if err := s.sem.Acquire(ctx, weight); err != nil {
		result = NewFailureResult(tc, fmt.Errorf("%w: %v", ErrTaskCancelled, err))
		return
	}
	defer s.sem.Release(weight)

	if err := s.base.BeforeExecuteTask(tc); err != nil {
		result = NewFailureResult(tc, err)
		return
	}

	result = s.runner.Run(ctx, tc)
}

// weight возвращает число единиц семафора для task.
func (s *LocalScheduler) weight(tc *domain.TaskContext) int64 {
	w := int64(tc.RequiredProcessors)
	if w < 1 {
		w = 1
	}
	if w > s.threads {
		w = s.threads
	}
	return w
}

// Stop отменяет все незавершённые task.
func (s *LocalScheduler) Stop() {
	s.base.Stop()
}

// Base возвращает общую часть планировщика (состояния task).
func (s *LocalScheduler) Base() *Base {
	return s.base
}
