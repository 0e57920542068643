package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/scheduler"
)

// ProcessConfig — конфигурация ProcessBackend.
type ProcessConfig struct {
	// Processors — число процессоров, доступных заданиям (default: runtime.NumCPU()).
	Processors int

	Logger *slog.Logger
}

// ProcessBackend выполняет задания как дочерние процессы.
//
// Задание ждёт свободных процессоров (WAITING), затем выполняется
// (RUNNING). stdout и stderr пишутся в <taskdir>/<name>.out и .err.
// Задание забывается после того, как StatusJob вернул COMPLETE, или
// после завершения остановленного задания.
type ProcessBackend struct {
	sem        *semaphore.Weighted
	processors int64
	logger     *slog.Logger

	mu   sync.Mutex
	jobs map[scheduler.JobHandle]*processJob
	seq  atomic.Int64
	wg   sync.WaitGroup
}

type processJob struct {
	cancel  context.CancelFunc
	status  scheduler.JobStatus
	stopped bool
}

// NewProcessBackend создаёт ProcessBackend.
func NewProcessBackend(cfg ProcessConfig) *ProcessBackend {
	processors := cfg.Processors
	if processors <= 0 {
		processors = runtime.NumCPU()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ProcessBackend{
		sem:        semaphore.NewWeighted(int64(processors)),
		processors: int64(processors),
		logger:     logger,
		jobs:       make(map[scheduler.JobHandle]*processJob),
	}
}

// SubmitJob запускает задание в отдельной горутине.
func (b *ProcessBackend) SubmitJob(_ context.Context, req scheduler.JobRequest) (scheduler.JobHandle, error) {
	if len(req.Command) == 0 {
		return "", ErrEmptyCommand
	}

	handle := scheduler.JobHandle(req.Name + "#" + strconv.FormatInt(b.seq.Add(1), 10))
	ctx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	b.jobs[handle] = &processJob{
		cancel: cancel,
		status: scheduler.JobStatus{State: scheduler.JobWaiting},
	}
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		b.run(ctx, handle, req)
	}()

	return handle, nil
}

// StatusJob возвращает статус задания.
func (b *ProcessBackend) StatusJob(_ context.Context, handle scheduler.JobHandle) (scheduler.JobStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	job, ok := b.jobs[handle]
	if !ok {
		return scheduler.JobStatus{State: scheduler.JobUnknown}, fmt.Errorf("%w: %s", ErrUnknownJob, handle)
	}
	if job.status.State == scheduler.JobComplete {
		delete(b.jobs, handle)
	}
	return job.status, nil
}

// StopJob убивает процесс задания.
func (b *ProcessBackend) StopJob(_ context.Context, handle scheduler.JobHandle) error {
	b.mu.Lock()
	job, ok := b.jobs[handle]
	if ok {
		job.stopped = true
		if job.status.State == scheduler.JobComplete {
			delete(b.jobs, handle)
		}
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, handle)
	}
	job.cancel()
	return nil
}

// Close отменяет все задания и ждёт их завершения.
func (b *ProcessBackend) Close() {
	b.mu.Lock()
	for _, job := range b.jobs {
		job.cancel()
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *ProcessBackend) run(ctx context.Context, handle scheduler.JobHandle, req scheduler.JobRequest) {
	weight := min(int64(max(req.Processors, 1)), b.processors)
	if err := b.sem.Acquire(ctx, weight); err != nil {
		b.setStatus(handle, scheduler.JobStatus{
			State:    scheduler.JobComplete,
			ExitCode: domain.ExitCodeCancelled,
			Message:  "cancelled before start",
		})
		return
	}
	defer b.sem.Release(weight)

	b.setStatus(handle, scheduler.JobStatus{State: scheduler.JobRunning})
	b.logger.Debug("process job started", "job", req.Name)

	code, err := runCommand(ctx, req)
	status := scheduler.JobStatus{State: scheduler.JobComplete, ExitCode: code}
	if err != nil {
		status.Message = err.Error()
		b.logger.Warn("process job failed", "job", req.Name, "exit_code", code, "error", err)
	}
	b.setStatus(handle, status)
}

func (b *ProcessBackend) setStatus(handle scheduler.JobHandle, status scheduler.JobStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok := b.jobs[handle]
	if !ok {
		return
	}
	job.status = status
	if job.stopped && status.State == scheduler.JobComplete {
		delete(b.jobs, handle)
	}
}

// runCommand выполняет команду задания и возвращает код завершения.
func runCommand(ctx context.Context, req scheduler.JobRequest) (int, error) {
	stdout, stderr, err := openOutputs(req.TaskDir, req.Name)
	if err != nil {
		return domain.ExitCodeCancelled, err
	}
	defer stdout.Close()
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, req.Command[0], req.Command[1:]...)
	cmd.Dir = req.TaskDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, err
		}
	}
	return domain.ExitCodeCancelled, err
}

func openOutputs(dir, name string) (*os.File, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create task dir: %w", err)
	}

	stdout, err := os.Create(filepath.Join(dir, name+domain.JobStdoutExtension))
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout file: %w", err)
	}
	stderr, err := os.Create(filepath.Join(dir, name+domain.JobStderrExtension))
	if err != nil {
		stdout.Close()
		return nil, nil, fmt.Errorf("create stderr file: %w", err)
	}
	return stdout, stderr, nil
}
