package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T) (*Settings, *pflag.FlagSet) {
	t.Helper()
	s := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	s.AddFlags(fs)
	return s, fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seqflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	if s.Scheduler != SchedulerLocal {
		t.Errorf("Scheduler = %q, want %q", s.Scheduler, SchedulerLocal)
	}
	if s.ProcessMemory != 4096 {
		t.Errorf("ProcessMemory = %d, want 4096", s.ProcessMemory)
	}
}

func TestLoad_Precedence(t *testing.T) {
	s, fs := newFlags(t)

	file := writeConfig(t, `
output_dir: /from/file
threads: 3
poll_interval: 10s
scheduler: process
kube:
  namespace: file-ns
  service_account: runner
queue:
  amqp_url: amqp://file
`)

	t.Setenv("SEQFLOW_THREADS", "6")
	t.Setenv("SEQFLOW_KUBE_NAMESPACE", "env-ns")

	if err := fs.Parse([]string{"--kube-namespace", "flag-ns", "-w", "/work"}); err != nil {
		t.Fatal(err)
	}
	if err := Load(fs, file, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file only", s.OutputDir, "/from/file"},
		{"env over file", s.LocalThreads, 6},
		{"flag over env", s.Kube.Namespace, "flag-ns"},
		{"flag only", s.WorkingDir, "/work"},
		{"duration from file", s.PollInterval, 10 * time.Second},
		{"nested key", s.Kube.ServiceAccount, "runner"},
		{"nested url", s.Queue.AMQPURL, "amqp://file"},
		{"scheduler", s.Scheduler, SchedulerProcess},
		{"default kept", s.ProcessMemory, 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_NoDefaultFile(t *testing.T) {
	s, fs := newFlags(t)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if err := Load(fs, "", nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q, want INFO", s.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    func(t *testing.T) string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "missing explicit file",
			file:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
			wantErr: ErrConfigFile,
		},
		{
			name:    "invalid value in file",
			file:    func(t *testing.T) string { return writeConfig(t, "threads: many\n") },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "invalid value in env",
			file:    func(t *testing.T) string { return writeConfig(t, "scheduler: local\n") },
			env:     map[string]string{"SEQFLOW_POLL_INTERVAL": "soon"},
			wantErr: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, fs := newFlags(t)
			if err := fs.Parse(nil); err != nil {
				t.Fatal(err)
			}
			err := Load(fs, tt.file(t), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(s *Settings)
		wantErr error
	}{
		{"unknown scheduler", func(s *Settings) { s.Scheduler = "slurm" }, ErrUnknownScheduler},
		{"zero threads", func(s *Settings) { s.LocalThreads = 0 }, ErrInvalidValue},
		{"negative memory", func(s *Settings) { s.ProcessMemory = -1 }, ErrInvalidValue},
		{"zero poll interval", func(s *Settings) { s.PollInterval = 0 }, ErrInvalidValue},
		{"kube without image", func(s *Settings) { s.Scheduler = SchedulerKube }, ErrInvalidValue},
		{"kube with image", func(s *Settings) {
			s.Scheduler = SchedulerKube
			s.Kube.Image = "seqflow:latest"
		}, nil},
		{"queue", func(s *Settings) { s.Scheduler = SchedulerQueue }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.modify(s)
			err := s.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	_, fs := newFlags(t)

	tests := []struct {
		flag    string
		wantKey string
		wantEnv string
	}{
		{"kube-namespace", "kube.namespace", "SEQFLOW_KUBE_NAMESPACE"},
		{"kube-service-account", "kube.service_account", "SEQFLOW_KUBE_SERVICE_ACCOUNT"},
		{"output-dir", "output_dir", "SEQFLOW_OUTPUT_DIR"},
		{"loglevel", "loglevel", "SEQFLOW_LOGLEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := fs.Lookup(tt.flag)
			if f == nil {
				t.Fatalf("flag %s not registered", tt.flag)
			}
			if got := ConfigKey(f); got != tt.wantKey {
				t.Errorf("ConfigKey() = %q, want %q", got, tt.wantKey)
			}
			if got := EnvKey(f); got != tt.wantEnv {
				t.Errorf("EnvKey() = %q, want %q", got, tt.wantEnv)
			}
		})
	}
}
