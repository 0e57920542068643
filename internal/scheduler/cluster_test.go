package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/modules"
)

// fakeBackend — backend в памяти. При execute выполняет task сразу при
// отправке, как это сделало бы задание кластера.
type fakeBackend struct {
	mu        sync.Mutex
	requests  []JobRequest
	polls     map[JobHandle]int
	stopped   []JobHandle
	runner    *TaskRunner
	execute   bool
	exitCode  int
	waitPolls int
	submitErr error
	statusErr error
	stopErr   map[JobHandle]error
	never     bool
}

func newFakeBackend(runner *TaskRunner) *fakeBackend {
	return &fakeBackend{
		polls:   make(map[JobHandle]int),
		runner:  runner,
		execute: true,
	}
}

func (b *fakeBackend) SubmitJob(ctx context.Context, req JobRequest) (JobHandle, error) {
	if b.submitErr != nil {
		return "", b.submitErr
	}

	b.mu.Lock()
	b.requests = append(b.requests, req)
	handle := JobHandle(fmt.Sprintf("job-%d", len(b.requests)))
	b.mu.Unlock()

	if b.execute {
		ctxFile := req.Command[len(req.Command)-1]
		if _, err := RunTaskFile(ctx, ctxFile, b.runner, testStorage()); err != nil {
			return "", err
		}
	}
	return handle, nil
}

func (b *fakeBackend) StatusJob(_ context.Context, handle JobHandle) (JobStatus, error) {
	if b.statusErr != nil {
		return JobStatus{}, b.statusErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.polls[handle]++
	if b.never || b.polls[handle] <= b.waitPolls {
		return JobStatus{State: JobRunning}, nil
	}
	return JobStatus{State: JobComplete, ExitCode: b.exitCode}, nil
}

func (b *fakeBackend) StopJob(_ context.Context, handle JobHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = append(b.stopped, handle)
	return b.stopErr[handle]
}

func newTestCluster(backend *fakeBackend, c *collector) *ClusterScheduler {
	return NewCluster(ClusterConfig{
		Backend:       backend,
		Storage:       testStorage(),
		Program:       "/opt/seqflow/bin/seqflow",
		RuntimePath:   "/opt/runtime",
		WorkingDir:    "/work",
		LogLevel:      "DEBUG",
		ProcessMemory: 1024,
		PollInterval:  time.Millisecond,
		OnResult:      c.handle,
		Logger:        testLogger(),
	})
}

// --- ClusterScheduler Tests ---

func TestClusterScheduler_Success(t *testing.T) {
	dir := t.TempDir()
	out := map[string][]domain.DataRef{
		"out": {{Name: "s1", Format: "txt", Compression: domain.CompressionNone, Files: []string{dir + "/out.txt"}}},
	}
	runner := testRunner(func(_ context.Context, task *modules.Task) (*modules.Result, error) {
		res := modules.NewResult("remote")
		res.Counters["n"] = 3
		return res, nil
	})

	backend := newFakeBackend(runner)
	backend.waitPolls = 2
	c := newCollector()
	s := newTestCluster(backend, c)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	tc := testContext(t, dir, 1)
	tc.Outputs = out
	if err := s.Submit(nil, tc); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	c.wait(t, 1)

	result := c.result(1)
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if result.Description != "remote" || result.Counters["n"] != 3 {
		t.Errorf("unexpected result: %+v", result)
	}
	if diff := cmp.Diff(out, result.Outputs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	if len(backend.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(backend.requests))
	}
	req := backend.requests[0]
	if req.Name != "job1-step_1" {
		t.Errorf("job name = %s", req.Name)
	}
	wantCommand := []string{
		"/opt/seqflow/bin/seqflow", "-j", "/opt/runtime", "-w", "/work",
		"--loglevel", "DEBUG", "exectask", TaskFile(tc, ContextExtension),
	}
	if diff := cmp.Diff(wantCommand, req.Command); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
	if req.MemoryMB != 1024 || req.Processors != 1 {
		t.Errorf("resources = %d MB / %d cpu", req.MemoryMB, req.Processors)
	}
	if polls := backend.polls["job-1"]; polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
	if state, _ := s.Base().TaskState(1); state != domain.TaskStateDone {
		t.Errorf("state = %s, want DONE", state)
	}
}

func TestClusterScheduler_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(b *fakeBackend)
		wantErr string
	}{
		{
			name:    "non-zero exit code",
			setup:   func(b *fakeBackend) { b.exitCode = 3 },
			wantErr: "invalid task exit code: 3 for task #1 in step step",
		},
		{
			name:    "no done file",
			setup:   func(b *fakeBackend) { b.execute = false },
			wantErr: "no done file found for task #1 in step step",
		},
		{
			name:    "submit error",
			setup:   func(b *fakeBackend) { b.submitErr = errors.New("queue full") },
			wantErr: "queue full",
		},
		{
			name:    "status error",
			setup:   func(b *fakeBackend) { b.statusErr = errors.New("unreachable") },
			wantErr: "unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testRunner(func(context.Context, *modules.Task) (*modules.Result, error) {
				return modules.NewResult(""), nil
			})
			backend := newFakeBackend(runner)
			tt.setup(backend)

			c := newCollector()
			s := newTestCluster(backend, c)
			_ = s.Start(context.Background())
			defer s.Stop()

			if err := s.Submit(nil, testContext(t, t.TempDir(), 1)); err != nil {
				t.Fatal(err)
			}
			c.wait(t, 1)

			result := c.result(1)
			if result.Success {
				t.Fatal("expected failure")
			}
			if !strings.Contains(result.Error, tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", result.Error, tt.wantErr)
			}
			if !strings.Contains(result.Description, tt.wantErr) {
				t.Errorf("description = %q, want to contain %q", result.Description, tt.wantErr)
			}
			if state, _ := s.Base().TaskState(1); state != domain.TaskStateFailed {
				t.Errorf("state = %s, want FAILED", state)
			}
		})
	}
}

func TestClusterScheduler_FailedTaskResult(t *testing.T) {
	runner := testRunner(func(context.Context, *modules.Task) (*modules.Result, error) {
		return nil, errors.New("mapper crashed")
	})
	backend := newFakeBackend(runner)
	c := newCollector()
	s := newTestCluster(backend, c)
	_ = s.Start(context.Background())
	defer s.Stop()

	if err := s.Submit(nil, testContext(t, t.TempDir(), 1)); err != nil {
		t.Fatal(err)
	}
	c.wait(t, 1)

	if result := c.result(1); result.Success || result.Error != "mapper crashed" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestClusterScheduler_StopCancelsJobs(t *testing.T) {
	backend := newFakeBackend(nil)
	backend.execute = false
	backend.never = true
	// Ошибка отмены одного задания не мешает отмене остальных.
	backend.stopErr = map[JobHandle]error{"job-2": errors.New("api unavailable")}

	c := newCollector()
	s := newTestCluster(backend, c)
	_ = s.Start(context.Background())

	dir := t.TempDir()
	for i := 1; i <= 3; i++ {
		if err := s.Submit(nil, testContext(t, dir, i)); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		backend.mu.Lock()
		n := len(backend.polls)
		backend.mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("jobs were not polled")
		}
		time.Sleep(time.Millisecond)
	}

	s.Stop()
	s.Stop()

	if ids := s.Base().Outstanding(); len(ids) != 0 {
		t.Errorf("Outstanding() = %v, want empty", ids)
	}

	backend.mu.Lock()
	stopped := append([]JobHandle(nil), backend.stopped...)
	backend.mu.Unlock()
	sort.Slice(stopped, func(i, j int) bool { return stopped[i] < stopped[j] })
	if diff := cmp.Diff([]JobHandle{"job-1", "job-2", "job-3"}, stopped); diff != "" {
		t.Errorf("stopped jobs mismatch (-want +got):\n%s", diff)
	}
	if c.count() != 0 {
		t.Errorf("cancelled tasks should not report results, got %d", c.count())
	}
}

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     []string
	}{
		{
			name:     "with log level",
			logLevel: "INFO",
			want:     []string{"seqflow", "-j", "/rt", "-w", "/wd", "--loglevel", "INFO", "exectask", "/tasks/a_1.ctx"},
		},
		{
			name: "without log level",
			want: []string{"seqflow", "-j", "/rt", "-w", "/wd", "exectask", "/tasks/a_1.ctx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCommand("seqflow", "/rt", "/wd", tt.logLevel, "/tasks/a_1.ctx")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildCommand() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequiredMemory(t *testing.T) {
	tests := []struct {
		name          string
		step          int
		defaultMemory int
		want          int
	}{
		{"step value", 8000, 2000, 8000},
		{"cluster default", 0, 2000, 2000},
		{"process memory", 0, 0, 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := &domain.TaskContext{RequiredMemory: tt.step}
			if got := RequiredMemory(tc, tt.defaultMemory, 4096); got != tt.want {
				t.Errorf("RequiredMemory() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestJobName(t *testing.T) {
	tc := &domain.TaskContext{JobID: "seqflow-20240101", Prefix: domain.TaskPrefix("mapreads", 12)}
	if got := JobName(tc); got != "seqflow-20240101-mapreads_12" {
		t.Errorf("JobName() = %s", got)
	}
}
