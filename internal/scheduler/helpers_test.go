package scheduler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/modules"
	"github.com/shaiso/Seqflow/internal/storage"
)

// funcModule — модуль, выполняющий заданную функцию.
type funcModule struct {
	name string
	exec func(ctx context.Context, task *modules.Task) (*modules.Result, error)
}

func (m *funcModule) Name() string                         { return m.name }
func (m *funcModule) Version() string                      { return modules.Version }
func (m *funcModule) Configure(_ []domain.Parameter) error { return nil }
func (m *funcModule) InputPorts() []engine.PortSpec        { return nil }
func (m *funcModule) OutputPorts() []engine.PortSpec       { return nil }
func (m *funcModule) Requirements() []domain.Requirement   { return nil }
func (m *funcModule) Terminal() bool                       { return false }

func (m *funcModule) Execute(ctx context.Context, task *modules.Task) (*modules.Result, error) {
	return m.exec(ctx, task)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStorage() *storage.Registry {
	return storage.NewRegistry(storage.NewLocalProtocol())
}

// testRunner создаёт TaskRunner с модулем "func", выполняющим exec.
func testRunner(exec func(ctx context.Context, task *modules.Task) (*modules.Result, error)) *TaskRunner {
	reg := modules.NewRegistry()
	reg.Register("func", func() modules.Module {
		return &funcModule{name: "func", exec: exec}
	})
	return NewTaskRunner(RunnerConfig{
		Modules: reg,
		Storage: testStorage(),
		Logger:  testLogger(),
	})
}

func testContext(t *testing.T, dir string, id int) *domain.TaskContext {
	t.Helper()
	prefix := domain.TaskPrefix("step", id)
	return &domain.TaskContext{
		ID:        id,
		JobID:     "job1",
		StepID:    "step",
		StepType:  domain.StepTypeStandard,
		Module:    "func",
		Prefix:    prefix,
		TaskDir:   dir,
		WorkDir:   filepath.Join(dir, prefix),
		OutputDir: dir,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// collector собирает результаты task.
type collector struct {
	mu      sync.Mutex
	results map[int]*domain.TaskResult
	done    chan int
}

func newCollector() *collector {
	return &collector{
		results: make(map[int]*domain.TaskResult),
		done:    make(chan int, 64),
	}
}

func (c *collector) handle(tc *domain.TaskContext, result *domain.TaskResult) {
	c.mu.Lock()
	c.results[tc.ID] = result
	c.mu.Unlock()
	c.done <- tc.ID
}

// wait ждёт n результатов.
func (c *collector) wait(t *testing.T, n int) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-c.done:
		case <-timeout:
			t.Fatalf("timeout waiting for results: got %d of %d", i, n)
		}
	}
}

func (c *collector) result(id int) *domain.TaskResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[id]
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}
