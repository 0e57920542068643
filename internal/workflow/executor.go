package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/scheduler"
	"github.com/shaiso/Seqflow/internal/storage"
	"github.com/shaiso/Seqflow/internal/telemetry"
)

// SchedulerFactory создаёт планировщик task, передающий результаты в onResult.
type SchedulerFactory func(onResult scheduler.ResultHandler) (scheduler.TaskScheduler, error)

// Config — конфигурация Executor.
type Config struct {
	// Workflow — разрешённый граф шагов.
	Workflow *engine.Workflow

	// Spec — описание workflow для копии в каталоге запуска (опционально).
	Spec *domain.WorkflowSpec

	// NewScheduler создаёт планировщик task.
	NewScheduler SchedulerFactory

	// Storage — протоколы доступа к данным (default: только локальный).
	Storage *storage.Registry

	// JobID — идентификатор запуска (default: UUID).
	JobID string

	// JobDir — каталог запуска (default: <working dir>/seqflow-<время>-<JobID>).
	JobDir string

	// LogLevel — уровень логирования, передаваемый task.
	LogLevel string

	Logger *slog.Logger
}

// Executor выполняет workflow.
//
// Executor:
//   - Строит план выполнения и сохраняет каталог запуска
//   - Передаёт готовые шаги планировщику (по task на образец)
//   - Собирает результаты task и токены выходов
//   - Останавливает планировщик при неуспехе или отмене
type Executor struct {
	workflow     *engine.Workflow
	spec         *domain.WorkflowSpec
	newScheduler SchedulerFactory
	storage      *storage.Registry
	jobID        string
	jobDir       string
	taskDir      string
	logLevel     string
	logger       *slog.Logger

	state      *RunState
	stateMu    sync.RWMutex
	results    chan taskResult
	done       chan struct{}
	nextTaskID int

	started   bool
	startedMu sync.Mutex
}

// taskResult — результат task, переданный планировщиком.
type taskResult struct {
	tc     *domain.TaskContext
	result *domain.TaskResult
}

// New создаёт Executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Workflow == nil {
		return nil, ErrNoWorkflow
	}
	if cfg.NewScheduler == nil {
		return nil, ErrNoScheduler
	}

	reg := cfg.Storage
	if reg == nil {
		reg = storage.NewRegistry(storage.NewLocalProtocol())
	}

	jobID := cfg.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	jobDir := cfg.JobDir
	if jobDir == "" {
		jobDir = DefaultJobDir(cfg.Workflow.Settings(), jobID, time.Now())
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		workflow:     cfg.Workflow,
		spec:         cfg.Spec,
		newScheduler: cfg.NewScheduler,
		storage:      reg,
		jobID:        jobID,
		jobDir:       jobDir,
		taskDir:      storage.Join(jobDir, TasksDirName),
		logLevel:     cfg.LogLevel,
		logger:       telemetry.WithJobID(logger, jobID),
		results:      make(chan taskResult),
		done:         make(chan struct{}),
	}, nil
}

// DefaultJobDir возвращает каталог запуска по умолчанию.
func DefaultJobDir(settings engine.Settings, jobID string, now time.Time) string {
	base := settings.WorkingDir
	if base == "" {
		base = settings.OutputDir
	}
	if base == "" {
		base = "."
	}
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return storage.Join(base, "seqflow-"+now.Format("20060102-150405")+"-"+short)
}

// JobID возвращает идентификатор запуска.
func (e *Executor) JobID() string {
	return e.jobID
}

// JobDir возвращает каталог запуска.
func (e *Executor) JobDir() string {
	return e.jobDir
}

// State возвращает состояние запуска. nil до вызова Run.
func (e *Executor) State() *RunState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// Run выполняет workflow и блокируется до завершения всех шагов,
// первого неуспешного task или отмены ctx.
//
// Run можно вызвать только один раз.
func (e *Executor) Run(ctx context.Context) error {
	e.startedMu.Lock()
	if e.started {
		e.startedMu.Unlock()
		return ErrAlreadyRunning
	}
	e.started = true
	e.startedMu.Unlock()

	plan, err := engine.NewPlan(e.workflow)
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}
	e.stateMu.Lock()
	e.state = NewRunState(plan, e.workflow.Design())
	e.stateMu.Unlock()

	if err := e.saveJobDirectory(ctx); err != nil {
		return err
	}

	sched, err := e.newScheduler(e.handleResult)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		// Сначала освобождаем ResultHandler, затем ждём горутины task.
		close(e.done)
		cancel()
		sched.Stop()
	}()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	startedAt := time.Now()
	e.logger.Info("workflow started",
		"workflow", e.workflow.Name,
		"steps", plan.Size(),
		"job_dir", e.jobDir,
	)

	for {
		if err := e.dispatchReady(sched); err != nil {
			return err
		}

		if e.state.IsComplete() {
			e.logger.Info("workflow completed", "duration", time.Since(startedAt))
			return nil
		}
		if !e.state.HasRunning() {
			return ErrStalled
		}

		select {
		case <-ctx.Done():
			return e.cancelled(ctx)
		case res := <-e.results:
			// Task, прерванные отменой, завершаются неуспешно раньше,
			// чем цикл увидит ctx.Done().
			if ctx.Err() != nil {
				return e.cancelled(ctx)
			}
			if err := e.handleTaskResult(res); err != nil {
				return err
			}
		}
	}
}

func (e *Executor) cancelled(ctx context.Context) error {
	e.logger.Warn("workflow cancelled", "error", ctx.Err())
	return fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
}

// handleResult передаёт результат task в цикл Run.
// После завершения Run результаты отбрасываются.
func (e *Executor) handleResult(tc *domain.TaskContext, result *domain.TaskResult) {
	select {
	case e.results <- taskResult{tc: tc, result: result}:
	case <-e.done:
	}
}

// dispatchReady запускает готовые шаги, пока они появляются.
// Инфраструктурные и пропущенные шаги завершаются сразу и могут
// сделать готовыми следующие.
func (e *Executor) dispatchReady(sched scheduler.TaskScheduler) error {
	for {
		ready := e.state.GetReadySteps()
		if len(ready) == 0 {
			return nil
		}
		for _, node := range ready {
			if err := e.dispatchStep(sched, node.Step); err != nil {
				return err
			}
		}
	}
}

// dispatchStep запускает один шаг.
func (e *Executor) dispatchStep(sched scheduler.TaskScheduler, step *engine.Step) error {
	logger := telemetry.WithStepID(e.logger, step.ID)

	switch step.Type {
	case domain.StepTypeRoot, domain.StepTypeChecker, domain.StepTypeFirst:
		e.state.MarkStepCompleted(step)
		return nil
	case domain.StepTypeDesign:
		design := e.workflow.Design()
		for _, out := range step.OutputPorts() {
			e.state.AddTokens(out, design.DataRefs(out.Format.Name))
		}
		e.state.MarkStepCompleted(step)
		return nil
	case domain.StepTypeGenerator, domain.StepTypeStandard:
	}

	tasks := e.buildTasks(step)

	if step.Skip {
		for _, tc := range tasks {
			e.addOutputTokens(step, tc.Outputs, logger)
		}
		e.state.MarkStepSkipped(step)
		logger.Info("step skipped", "tasks", len(tasks))
		return nil
	}

	ids := make([]int, len(tasks))
	for i, tc := range tasks {
		ids[i] = tc.ID
	}
	e.state.MarkStepRunning(step, ids)

	logger.Info("step started", "module", step.ModuleName, "tasks", len(tasks))

	for _, tc := range tasks {
		if err := sched.Submit(step, tc); err != nil {
			e.state.MarkStepFailed(step)
			return fmt.Errorf("submit %s: %w", tc, err)
		}
	}
	return nil
}

// handleTaskResult учитывает результат task.
func (e *Executor) handleTaskResult(res taskResult) error {
	step, ok := e.state.TaskStep(res.tc.ID)
	if !ok {
		e.logger.Warn("result of unknown task ignored", "task_id", res.tc.ID, "step_id", res.tc.StepID)
		return nil
	}
	logger := telemetry.WithStepID(e.logger, step.ID)

	if res.result.State() != domain.TaskStateDone {
		e.state.MarkStepFailed(step)
		logger.Error("step failed", "task_id", res.tc.ID, "sample", res.tc.Sample, "error", res.result.Error)
		return fmt.Errorf("%w: %s: %s", ErrStepFailed, step.ID, res.result.Error)
	}

	outputs := res.result.Outputs
	if outputs == nil {
		outputs = res.tc.Outputs
	}
	e.addOutputTokens(step, outputs, logger)

	if e.state.TaskFinished(res.tc.ID) {
		e.state.MarkStepCompleted(step)
		logger.Info("step completed")
	}
	return nil
}

// addOutputTokens добавляет выходы task к токенам портов шага.
func (e *Executor) addOutputTokens(step *engine.Step, outputs map[string][]domain.DataRef, logger *slog.Logger) {
	for name, refs := range outputs {
		port := step.OutputPort(name)
		if port == nil {
			logger.Warn("task output for unknown port ignored", "port", name)
			continue
		}
		e.state.AddTokens(port, refs)
	}
}
