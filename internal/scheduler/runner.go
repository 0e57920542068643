package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/modules"
	"github.com/shaiso/Seqflow/internal/storage"
	"github.com/shaiso/Seqflow/internal/telemetry"
)

// TaskRunner выполняет task в текущем процессе.
type TaskRunner struct {
	modules *modules.Registry
	storage *storage.Registry
	logger  *slog.Logger
}

// RunnerConfig — конфигурация TaskRunner.
type RunnerConfig struct {
	Modules *modules.Registry
	Storage *storage.Registry
	Logger  *slog.Logger
}

// NewTaskRunner создаёт TaskRunner.
func NewTaskRunner(cfg RunnerConfig) *TaskRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskRunner{
		modules: cfg.Modules,
		storage: cfg.Storage,
		logger:  logger,
	}
}

// Run создаёт модуль task, конфигурирует его параметрами из контекста и
// выполняет. Всегда возвращает результат: ошибка выполнения становится
// неуспешным результатом.
func (r *TaskRunner) Run(ctx context.Context, tc *domain.TaskContext) *domain.TaskResult {
	startedAt := time.Now()
	logger := telemetry.WithTaskID(telemetry.WithStepID(r.logger, tc.StepID), tc.ID)
	if tc.JobID != "" {
		logger = telemetry.WithJobID(logger, tc.JobID)
	}

	res, err := r.execute(ctx, tc, logger)
	if err != nil {
		logger.Error("task execution failed", "module", tc.Module, "error", err)
		result := NewFailureResult(tc, err)
		result.StartedAt = startedAt
		return result
	}

	outputs := res.Outputs
	if outputs == nil {
		outputs = tc.Outputs
	}

	return &domain.TaskResult{
		TaskID:      tc.ID,
		StepID:      tc.StepID,
		Success:     true,
		Counters:    res.Counters,
		Description: res.Description,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		Outputs:     outputs,
	}
}

func (r *TaskRunner) execute(ctx context.Context, tc *domain.TaskContext, logger *slog.Logger) (res *modules.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("module %s panicked: %v", tc.Module, p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaskCancelled, err)
	}

	m, err := r.modules.GetVersion(tc.Module, tc.ModuleVersion)
	if err != nil {
		return nil, err
	}
	if err := m.Configure(tc.Parameters); err != nil {
		return nil, fmt.Errorf("configure module %s: %w", tc.Module, err)
	}

	if tc.WorkDir != "" {
		if err := r.storage.MkdirAll(ctx, tc.WorkDir); err != nil {
			return nil, fmt.Errorf("create working directory: %w", err)
		}
	}
	if err := r.prepareOutputDirs(ctx, tc); err != nil {
		return nil, err
	}

	logger.Debug("executing module", "module", tc.Module, "sample", tc.Sample)

	res, err = m.Execute(ctx, &modules.Task{
		Context: tc,
		Storage: r.storage,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNoResult
	}
	return res, nil
}

// prepareOutputDirs создаёт каталоги выходных файлов task.
func (r *TaskRunner) prepareOutputDirs(ctx context.Context, tc *domain.TaskContext) error {
	created := make(map[string]bool)
	for _, refs := range tc.Outputs {
		for _, ref := range refs {
			for _, f := range ref.Files {
				dir := storage.Dir(f)
				if created[dir] {
					continue
				}
				if err := r.storage.MkdirAll(ctx, dir); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				created[dir] = true
			}
		}
	}
	return nil
}
