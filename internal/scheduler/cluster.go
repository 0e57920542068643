package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/storage"
	"github.com/shaiso/Seqflow/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval  = 5 * time.Second
	defaultProcessMemory = 4096
	stopJobTimeout       = 30 * time.Second
)

// ExecTaskCommand — имя команды, выполняющей task из файла контекста.
const ExecTaskCommand = "exectask"

// JobHandle — идентификатор задания, выданный backend'ом.
type JobHandle string

// JobState — состояние задания кластера.
type JobState string

const (
	JobWaiting  JobState = "WAITING"
	JobRunning  JobState = "RUNNING"
	JobComplete JobState = "COMPLETE"
	JobUnknown  JobState = "UNKNOWN"
)

// JobStatus — результат запроса статуса задания.
type JobStatus struct {
	State JobState

	// ExitCode — код завершения. Значим только для JobComplete.
	ExitCode int

	// Message — пояснение backend'а (опционально).
	Message string
}

// JobRequest — описание задания для backend'а.
type JobRequest struct {
	// Name — имя задания: <jobID>-<prefix>.
	Name string

	// Command — команда с аргументами.
	Command []string

	// TaskDir — каталог файлов task.
	TaskDir string

	// TaskID — ID task.
	TaskID int

	// MemoryMB — требуемая память.
	MemoryMB int

	// Processors — требуемое число процессоров.
	Processors int
}

// Backend — интерфейс отправки заданий во внешний планировщик.
type Backend interface {
	// SubmitJob отправляет задание и возвращает его идентификатор.
	SubmitJob(ctx context.Context, req JobRequest) (JobHandle, error)

	// StatusJob возвращает статус задания.
	StatusJob(ctx context.Context, handle JobHandle) (JobStatus, error)

	// StopJob отменяет задание.
	StopJob(ctx context.Context, handle JobHandle) error
}

// ClusterConfig — конфигурация ClusterScheduler.
type ClusterConfig struct {
	Backend Backend
	Storage *storage.Registry

	// Program — исполняемый файл seqflow (default: текущий).
	Program string

	// RuntimePath — значение флага -j (default: каталог Program).
	RuntimePath string

	// WorkingDir — значение флага -w (default: текущий каталог).
	WorkingDir string

	// LogLevel — значение флага --loglevel. Пусто — из контекста task.
	LogLevel string

	// DefaultMemory — память по умолчанию для заданий кластера, MB.
	DefaultMemory int

	// ProcessMemory — память процесса, если другие значения не заданы (default: 4096).
	ProcessMemory int

	// PollInterval — интервал опроса статуса (default: 5s).
	PollInterval time.Duration

	OnResult ResultHandler
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

// ClusterScheduler выполняет task как задания внешнего планировщика.
//
// На каждый task — горутина: контекст сериализуется в <prefix>.ctx,
// задание запускает "seqflow exectask <ctxfile>", статус опрашивается
// до завершения, затем читаются файлы результата.
type ClusterScheduler struct {
	base    *Base
	backend Backend
	storage *storage.Registry
	metrics *telemetry.Metrics
	logger  *slog.Logger

	program       string
	runtimePath   string
	workingDir    string
	logLevel      string
	defaultMemory int
	processMemory int
	pollInterval  time.Duration
}

// NewCluster создаёт ClusterScheduler.
func NewCluster(cfg ClusterConfig) *ClusterScheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	program := cfg.Program
	if program == "" {
		if exe, err := os.Executable(); err == nil {
			program = exe
		} else {
			program = "seqflow"
		}
	}
	runtimePath := cfg.RuntimePath
	if runtimePath == "" {
		runtimePath = filepath.Dir(program)
	}
	workingDir := cfg.WorkingDir
	if workingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workingDir = wd
		}
	}
	processMemory := cfg.ProcessMemory
	if processMemory <= 0 {
		processMemory = defaultProcessMemory
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &ClusterScheduler{
		base: NewBase(BaseConfig{
			Name:     "cluster",
			OnResult: cfg.OnResult,
			Metrics:  cfg.Metrics,
			Logger:   logger,
		}),
		backend:       cfg.Backend,
		storage:       cfg.Storage,
		metrics:       cfg.Metrics,
		logger:        logger,
		program:       program,
		runtimePath:   runtimePath,
		workingDir:    workingDir,
		logLevel:      cfg.LogLevel,
		defaultMemory: cfg.DefaultMemory,
		processMemory: processMemory,
		pollInterval:  pollInterval,
	}
}

// Start запускает планировщик.
func (s *ClusterScheduler) Start(ctx context.Context) error {
	return s.base.Start(ctx)
}

// Submit отправляет task в кластер.
func (s *ClusterScheduler) Submit(step *engine.Step, tc *domain.TaskContext) error {
	taskCtx, err := s.base.Submit(step, tc)
	if err != nil {
		return err
	}

	s.base.Go(func() {
		s.run(taskCtx, tc)
	})
	return nil
}

// Stop отменяет все задания. Ошибки отмены только логируются.
func (s *ClusterScheduler) Stop() {
	s.base.Stop()
}

// Base возвращает общую часть планировщика (состояния task).
func (s *ClusterScheduler) Base() *Base {
	return s.base
}

func (s *ClusterScheduler) run(ctx context.Context, tc *domain.TaskContext) {
	var result *domain.TaskResult
	defer func() {
		s.base.AfterExecuteTask(tc, result)
	}()

	if err := s.base.BeforeExecuteTask(tc); err != nil {
		result = NewFailureResult(tc, err)
		return
	}

	startedAt := time.Now()
	res, err := s.execute(ctx, tc)
	if err != nil {
		result = NewFailureResult(tc, err)
		result.StartedAt = startedAt
		return
	}
	result = res
}

// execute отправляет задание, ждёт его завершения и читает результат.
func (s *ClusterScheduler) execute(ctx context.Context, tc *domain.TaskContext) (*domain.TaskResult, error) {
	logger := telemetry.WithTaskID(telemetry.WithStepID(s.logger, tc.StepID), tc.ID)

	ctxFile, err := WriteContext(ctx, s.storage, tc)
	if err != nil {
		return nil, err
	}

	logLevel := s.logLevel
	if logLevel == "" {
		logLevel = tc.LogLevel
	}

	req := JobRequest{
		Name:       JobName(tc),
		Command:    BuildCommand(s.program, s.runtimePath, s.workingDir, logLevel, ctxFile),
		TaskDir:    tc.TaskDir,
		TaskID:     tc.ID,
		MemoryMB:   RequiredMemory(tc, s.defaultMemory, s.processMemory),
		Processors: max(tc.RequiredProcessors, 1),
	}

	handle, err := s.backend.SubmitJob(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submit job %s: %w", req.Name, err)
	}
	logger.Info("job submitted", "job", req.Name, "handle", handle, "memory_mb", req.MemoryMB)

	status, err := s.waitJob(ctx, handle)
	if err != nil {
		if ctx.Err() != nil {
			s.stopJob(handle)
			return nil, fmt.Errorf("%w: %v", ErrTaskCancelled, ctx.Err())
		}
		return nil, err
	}

	if status.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %d for task #%d in step %s",
			ErrInvalidExitCode, status.ExitCode, tc.ID, tc.StepID)
	}

	return LoadResult(ctx, s.storage, tc)
}

// waitJob опрашивает статус задания до COMPLETE.
func (s *ClusterScheduler) waitJob(ctx context.Context, handle JobHandle) (JobStatus, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, err := s.backend.StatusJob(ctx, handle)
		s.metrics.JobPolled()
		if err != nil {
			return JobStatus{}, fmt.Errorf("status of job %s: %w", handle, err)
		}
		if status.State == JobComplete {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return JobStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// stopJob отменяет задание. Ошибки логируются.
func (s *ClusterScheduler) stopJob(handle JobHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), stopJobTimeout)
	defer cancel()

	if err := s.backend.StopJob(ctx, handle); err != nil {
		s.logger.Error("failed to stop job", "handle", handle, "error", err)
		return
	}
	s.logger.Info("job stopped", "handle", handle)
}

// JobName возвращает имя задания task: <jobID>-<prefix>.
func JobName(tc *domain.TaskContext) string {
	return tc.JobID + "-" + tc.Prefix
}

// BuildCommand строит команду задания:
//
//	<program> -j <runtime> -w <workdir> [--loglevel <level>] exectask <ctxfile>
func BuildCommand(program, runtimePath, workingDir, logLevel, ctxFile string) []string {
	command := []string{program, "-j", runtimePath, "-w", workingDir}
	if logLevel != "" {
		command = append(command, "--loglevel", logLevel)
	}
	return append(command, ExecTaskCommand, ctxFile)
}

// RequiredMemory возвращает память задания: значение шага, иначе
// значение по умолчанию для кластера, иначе память процесса.
func RequiredMemory(tc *domain.TaskContext, defaultMemory, processMemory int) int {
	if tc.RequiredMemory > 0 {
		return tc.RequiredMemory
	}
	if defaultMemory > 0 {
		return defaultMemory
	}
	return processMemory
}
