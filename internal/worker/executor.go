package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Seqflow/internal/domain"
)

// exitCodeStartFailed — код завершения команды, которую не удалось запустить.
const exitCodeStartFailed = 127

// Executor выполняет команду задания.
//
// ctx отменяется при остановке worker'а или запросе отмены задания.
type Executor interface {
	Execute(ctx context.Context, job *domain.QueueJob) (*ExecutionResult, error)
}

// ExecutionResult — результат выполнения задания.
type ExecutionResult struct {
	// ExitCode — код завершения команды.
	ExitCode int

	// Error — сообщение об ошибке (ненулевой код, сигнал).
	// Инфраструктурные ошибки возвращаются через error в Execute().
	Error string
}

// CommandExecutor запускает команду задания дочерним процессом.
//
// stdout и stderr процесса читают две горутины и пишут в
// <taskdir>/<name>.out и <taskdir>/<name>.err.
type CommandExecutor struct{}

// Execute запускает команду и ждёт её завершения.
func (e *CommandExecutor) Execute(ctx context.Context, job *domain.QueueJob) (*ExecutionResult, error) {
	if len(job.Command) == 0 {
		return nil, ErrEmptyCommand
	}

	if err := os.MkdirAll(job.TaskDir, 0o755); err != nil {
		return nil, fmt.Errorf("create task dir: %w", err)
	}

	stdoutFile, err := os.Create(filepath.Join(job.TaskDir, job.Name+domain.JobStdoutExtension))
	if err != nil {
		return nil, fmt.Errorf("create stdout file: %w", err)
	}
	defer stdoutFile.Close()

	stderrFile, err := os.Create(filepath.Join(job.TaskDir, job.Name+domain.JobStderrExtension))
	if err != nil {
		return nil, fmt.Errorf("create stderr file: %w", err)
	}
	defer stderrFile.Close()

	cmd := exec.CommandContext(ctx, job.Command[0], job.Command[1:]...)
	cmd.Dir = job.TaskDir
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return &ExecutionResult{
			ExitCode: exitCodeStartFailed,
			Error:    fmt.Sprintf("start command: %v", err),
		}, nil
	}

	// Pipe'ы нужно дочитать до Wait.
	var g errgroup.Group
	g.Go(func() error { return drain(stdoutFile, stdout) })
	g.Go(func() error { return drain(stderrFile, stderr) })
	drainErr := g.Wait()

	waitErr := cmd.Wait()
	if drainErr != nil {
		return nil, fmt.Errorf("copy command output: %w", drainErr)
	}

	if waitErr == nil {
		return &ExecutionResult{ExitCode: 0}, nil
	}

	if ctx.Err() != nil {
		return &ExecutionResult{
			ExitCode: domain.ExitCodeCancelled,
			Error:    ErrJobCancelled.Error(),
		}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = domain.ExitCodeCancelled
		}
		return &ExecutionResult{ExitCode: code, Error: waitErr.Error()}, nil
	}
	return nil, fmt.Errorf("wait command: %w", waitErr)
}

func drain(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
