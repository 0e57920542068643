package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Seqflow/internal/config"
	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/modules"
	"github.com/shaiso/Seqflow/internal/scheduler"
	"github.com/shaiso/Seqflow/internal/storage"
	"github.com/shaiso/Seqflow/internal/workflow"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	a := &app{
		settings: config.Default(),
		modules:  modules.DefaultRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cmd := newRootCmd(a, "test")

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeWorkflow создаёт workflow с одним shell шагом и двумя образцами.
func writeWorkflow(t *testing.T, root string) string {
	t.Helper()
	dataDir := filepath.Join(root, "data")
	writeFile(t, filepath.Join(dataDir, "s1.txt"), "hello\n")
	writeFile(t, filepath.Join(dataDir, "s2.txt"), "world\n")

	location := filepath.Join(root, "workflow.yaml")
	writeFile(t, location, fmt.Sprintf(`
name: cli-test
steps:
  - id: upper
    module: shell
    parameters:
      command: 'tr a-z A-Z < [[ .Input "in" ]] > [[ .Output "out" ]]'
      inputs: "in:text"
      outputs: "out:text:NONE"
design:
  samples:
    - id: s1
      files:
        text: [%q]
    - id: s2
      files:
        text: [%q]
`, filepath.Join(dataDir, "s1.txt"), filepath.Join(dataDir, "s2.txt")))
	return location
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestExecCmd(t *testing.T) {
	root := t.TempDir()
	location := writeWorkflow(t, root)
	workDir := filepath.Join(root, "work")
	outDir := filepath.Join(root, "out")

	_, stderr, err := runCmd(t, "exec", location,
		"-w", workDir,
		"-o", outDir,
		"--job-dir", filepath.Join(root, "jobs", "run1"),
		"--threads", "2",
	)
	if err != nil {
		t.Fatalf("exec error = %v", err)
	}

	for sample, want := range map[string]string{"s1": "HELLO\n", "s2": "WORLD\n"} {
		name := "upper_out_" + sample + ".txt"
		if got := readFile(t, filepath.Join(workDir, name)); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
		if got := readFile(t, filepath.Join(outDir, name)); got != want {
			t.Errorf("copied %s = %q, want %q", name, got, want)
		}
	}

	if !strings.Contains(stderr, "Workflow cli-test completed") {
		t.Errorf("stderr = %q, want completion message", stderr)
	}
	if got := readFile(t, filepath.Join(root, "jobs", "run1", "workflow.yaml")); !strings.Contains(got, "cli-test") {
		t.Errorf("workflow copy = %q", got)
	}
}

func TestExecCmd_StepFailed(t *testing.T) {
	root := t.TempDir()
	location := filepath.Join(root, "workflow.yaml")
	writeFile(t, location, `
name: broken
steps:
  - id: fail
    module: shell
    parameters:
      command: "exit 3"
`)

	_, _, err := runCmd(t, "exec", location, "-w", filepath.Join(root, "work"), "--job-dir", filepath.Join(root, "job"))
	if !errors.Is(err, workflow.ErrStepFailed) {
		t.Fatalf("exec error = %v, want %v", err, workflow.ErrStepFailed)
	}
}

func TestExecCmd_Errors(t *testing.T) {
	root := t.TempDir()
	location := writeWorkflow(t, root)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "unknown scheduler",
			args:    []string{"exec", location, "--scheduler", "slurm"},
			wantErr: config.ErrUnknownScheduler,
		},
		{
			name:    "missing config file",
			args:    []string{"exec", location, "--config", filepath.Join(root, "absent.yaml")},
			wantErr: config.ErrConfigFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmd(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, _, err := runCmd(t, "exec"); err == nil {
		t.Error("exec without workflow should fail")
	}
}

func TestGraphCmd(t *testing.T) {
	location := writeWorkflow(t, t.TempDir())

	stdout, _, err := runCmd(t, "graph", location)
	if err != nil {
		t.Fatalf("graph error = %v", err)
	}
	if !strings.HasPrefix(stdout, "digraph") {
		t.Errorf("output is not DOT:\n%s", stdout)
	}
	if !strings.Contains(stdout, "upper") {
		t.Errorf("output does not contain step upper:\n%s", stdout)
	}
}

func TestPlanCmd(t *testing.T) {
	location := writeWorkflow(t, t.TempDir())

	t.Run("table", func(t *testing.T) {
		stdout, _, err := runCmd(t, "plan", location)
		if err != nil {
			t.Fatalf("plan error = %v", err)
		}
		if !strings.Contains(stdout, "DEPENDS ON") || !strings.Contains(stdout, "upper") {
			t.Errorf("unexpected table:\n%s", stdout)
		}
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := runCmd(t, "plan", location, "--json")
		if err != nil {
			t.Fatalf("plan error = %v", err)
		}

		var steps []planStep
		if err := json.Unmarshal([]byte(stdout), &steps); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}

		order := make(map[string]int, len(steps))
		for _, s := range steps {
			order[s.ID] = s.Order
		}
		upper, ok := order["upper"]
		if !ok {
			t.Fatalf("plan has no step upper: %+v", steps)
		}
		if design := order["design"]; design == 0 || design > upper {
			t.Errorf("design order = %d, upper order = %d", design, upper)
		}
	})
}

func TestExecTaskCmd(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr error
	}{
		{name: "success", command: "echo done > result.txt"},
		{name: "failure", command: "exit 3", wantErr: ErrTaskFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			reg := storage.NewRegistry(storage.NewLocalProtocol())

			tc := &domain.TaskContext{
				ID:         7,
				StepID:     "task",
				Module:     modules.ShellModule,
				Parameters: []domain.Parameter{{Name: modules.ParamCommand, Value: tt.command}},
				Prefix:     domain.TaskPrefix("task", 7),
				TaskDir:    filepath.Join(dir, "tasks"),
				WorkDir:    filepath.Join(dir, "work"),
			}
			ctxFile, err := scheduler.WriteContext(ctx, reg, tc)
			if err != nil {
				t.Fatal(err)
			}

			_, _, err = runCmd(t, "exectask", ctxFile)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("exectask error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("exectask error = %v, want %v", err, tt.wantErr)
			}

			// Маркер завершения пишется в обоих случаях.
			if _, err := os.Stat(scheduler.TaskFile(tc, scheduler.DoneExtension)); err != nil {
				t.Errorf("done file: %v", err)
			}
		})
	}
}

func TestOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	out := NewOutput(false, &stdout, &stderr)
	if err := out.Print([]string{"ID", "NAME"}, [][]string{{"1", "upper"}}, nil); err != nil {
		t.Fatal(err)
	}
	want := "ID  NAME\n--  ----\n1   upper\n"
	if stdout.String() != want {
		t.Errorf("table = %q, want %q", stdout.String(), want)
	}

	stdout.Reset()
	out = NewOutput(true, &stdout, &stderr)
	if err := out.Print(nil, nil, map[string]int{"steps": 2}); err != nil {
		t.Fatal(err)
	}
	if got := stdout.String(); got != "{\n  \"steps\": 2\n}\n" {
		t.Errorf("json = %q", got)
	}

	out.Error("boom")
	if got := stderr.String(); got != "Error: boom\n" {
		t.Errorf("stderr = %q", got)
	}
}
