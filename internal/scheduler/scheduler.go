package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/telemetry"
)

// TaskScheduler — планировщик task.
//
// Submit вызывается один раз на task. Результаты передаются в
// ResultHandler, указанный при создании планировщика.
type TaskScheduler interface {
	// Start запускает планировщик. Отмена ctx останавливает все task.
	Start(ctx context.Context) error

	// Submit передаёт task на выполнение.
	Submit(step *engine.Step, tc *domain.TaskContext) error

	// Stop отменяет все незавершённые task. Идемпотентен.
	Stop()
}

// ResultHandler получает результат завершённого task.
// Вызывается из горутины task и не должен надолго блокироваться.
type ResultHandler func(tc *domain.TaskContext, result *domain.TaskResult)

// taskEntry — незавершённый task.
type taskEntry struct {
	tc     *domain.TaskContext
	step   *engine.Step
	state  domain.TaskState
	cancel context.CancelFunc
}

// BaseConfig — конфигурация Base.
type BaseConfig struct {
	// Name — имя планировщика для логов.
	Name string

	// OnResult получает результаты завершённых task.
	OnResult ResultHandler

	// Metrics — метрики (опционально).
	Metrics *telemetry.Metrics

	// Logger — логгер. По умолчанию slog.Default().
	Logger *slog.Logger
}

// Base — общая часть планировщиков: состояния task и жизненный цикл.
//
// Незавершённые task хранятся в map под мьютексом: Submit добавляет
// task, AfterExecuteTask удаляет его. Конкретный планировщик запускает
// выполнение через Go, чтобы Stop дождался горутин.
type Base struct {
	name     string
	onResult ResultHandler
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	tasks   map[int]*taskEntry
	states  map[int]domain.TaskState
	ctx     context.Context
	stopped bool

	// Lifecycle
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewBase создаёт Base.
func NewBase(cfg BaseConfig) *Base {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "scheduler"
	}

	return &Base{
		name:     name,
		onResult: cfg.OnResult,
		metrics:  cfg.Metrics,
		logger:   logger.With("scheduler", name),
		tasks:    make(map[int]*taskEntry),
		states:   make(map[int]domain.TaskState),
	}
}

// Start запоминает корневой контекст task.
// Повторный вызов ничего не делает.
func (b *Base) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return ErrSchedulerStopped
	}
	if b.ctx != nil {
		return nil
	}

	b.ctx, b.cancelFunc = context.WithCancel(ctx)
	b.logger.Debug("scheduler started")
	return nil
}

// Submit регистрирует task в состоянии SUBMITTED и возвращает контекст,
// который отменяется при Stop.
func (b *Base) Submit(step *engine.Step, tc *domain.TaskContext) (context.Context, error) {
	if tc == nil {
		return nil, ErrNilContext
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return nil, ErrSchedulerStopped
	}
	if b.ctx == nil {
		return nil, ErrNotStarted
	}
	if _, exists := b.states[tc.ID]; exists {
		return nil, fmt.Errorf("%w: #%d", ErrTaskAlreadySubmitted, tc.ID)
	}
	taskCtx, cancel := context.WithCancel(b.ctx)
	b.tasks[tc.ID] = &taskEntry{
		tc:     tc,
		step:   step,
		state:  domain.TaskStateSubmitted,
		cancel: cancel,
	}
	b.states[tc.ID] = domain.TaskStateSubmitted
	b.metrics.TaskSubmitted()

	b.logger.Debug("task submitted", "task_id", tc.ID, "step_id", tc.StepID, "sample", tc.Sample)
	return taskCtx, nil
}

// Go запускает выполнение task в отдельной горутине.
func (b *Base) Go(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// BeforeExecuteTask переводит task в RUNNING.
func (b *Base) BeforeExecuteTask(tc *domain.TaskContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.tasks[tc.ID]
	if !ok {
		if b.stopped {
			return ErrSchedulerStopped
		}
		return fmt.Errorf("%w: #%d", ErrUnknownTask, tc.ID)
	}
	if !entry.state.CanTransition(domain.TaskStateRunning) {
		return fmt.Errorf("task #%d: invalid transition %s -> %s", tc.ID, entry.state, domain.TaskStateRunning)
	}

	entry.state = domain.TaskStateRunning
	b.states[tc.ID] = domain.TaskStateRunning
	b.metrics.TaskStarted()

	b.logger.Info("task started", "task_id", tc.ID, "step_id", tc.StepID, "sample", tc.Sample)
	return nil
}

// AfterExecuteTask переводит task в DONE или FAILED и передаёт результат
// в ResultHandler. nil result становится неуспешным результатом.
//
// Результаты task, отменённых через Stop, не передаются.
func (b *Base) AfterExecuteTask(tc *domain.TaskContext, result *domain.TaskResult) {
	if result == nil {
		result = NewFailureResult(tc, ErrNoResult)
	}
	state := result.State()

	b.mu.Lock()
	entry, ok := b.tasks[tc.ID]
	if !ok {
		b.mu.Unlock()
		b.logger.Debug("result of cancelled task dropped", "task_id", tc.ID, "step_id", tc.StepID)
		return
	}
	running := entry.state == domain.TaskStateRunning
	delete(b.tasks, tc.ID)
	b.states[tc.ID] = state
	handler := b.onResult
	b.mu.Unlock()

	entry.cancel()
	b.metrics.TaskFinished(string(state), running)

	if state == domain.TaskStateDone {
		b.logger.Info("task completed",
			"task_id", tc.ID, "step_id", tc.StepID, "duration", result.Duration())
	} else {
		b.logger.Error("task failed",
			"task_id", tc.ID, "step_id", tc.StepID, "error", result.Error)
	}

	if handler != nil {
		handler(tc, result)
	}
}

// Stop отменяет все незавершённые task, очищает их список и ждёт
// завершения горутин. Безопасен для конкурентного и повторного вызова.
func (b *Base) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		entries := make([]*taskEntry, 0, len(b.tasks))
		for id, entry := range b.tasks {
			entries = append(entries, entry)
			b.states[id] = domain.TaskStateFailed
		}
		b.tasks = make(map[int]*taskEntry)
		cancel := b.cancelFunc
		b.mu.Unlock()

		if len(entries) > 0 {
			b.logger.Info("stopping scheduler", "outstanding_tasks", len(entries))
		}

		for _, entry := range entries {
			entry.cancel()
			b.metrics.TaskFinished(string(domain.TaskStateFailed), entry.state == domain.TaskStateRunning)
		}
		if cancel != nil {
			cancel()
		}

		b.wg.Wait()
		b.logger.Debug("scheduler stopped")
	})
}

// IsStopped возвращает true после Stop.
func (b *Base) IsStopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

// TaskState возвращает состояние task.
func (b *Base) TaskState(id int) (domain.TaskState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[id]
	return state, ok
}

// Outstanding возвращает ID незавершённых task по возрастанию.
func (b *Base) Outstanding() []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int, 0, len(b.tasks))
	for id := range b.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Counts возвращает число task в каждом состоянии.
func (b *Base) Counts() map[domain.TaskState]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[domain.TaskState]int)
	for _, state := range b.states {
		counts[state]++
	}
	return counts
}

// NewFailureResult создаёт неуспешный результат task с причиной err.
func NewFailureResult(tc *domain.TaskContext, err error) *domain.TaskResult {
	now := time.Now()
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &domain.TaskResult{
		TaskID:      tc.ID,
		StepID:      tc.StepID,
		Success:     false,
		Description: "task failed: " + msg,
		Error:       msg,
		StartedAt:   now,
		FinishedAt:  now,
	}
}
