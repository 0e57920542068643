package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/repo"
	"github.com/shaiso/Seqflow/internal/workflow"
)

type fakeRun struct {
	status workflow.RunStatus
}

func (f *fakeRun) Status() workflow.RunStatus {
	return f.status
}

type fakeJobs struct {
	jobs      map[uuid.UUID]*domain.QueueJob
	cancelled []uuid.UUID
}

func (f *fakeJobs) GetByID(_ context.Context, id uuid.UUID) (*domain.QueueJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobs) RequestCancel(_ context.Context, id uuid.UUID) error {
	if _, ok := f.jobs[id]; !ok {
		return repo.ErrNotFound
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func newServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, Config{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}

	// Без источников маршруты API не регистрируются.
	if code := do(t, http.MethodGet, srv.URL+"/api/v1/run", nil); code != http.StatusNotFound {
		t.Errorf("run without source = %d, want 404", code)
	}
}

func TestRunRoutes(t *testing.T) {
	run := &fakeRun{status: workflow.RunStatus{JobID: "job1", JobDir: "/jobs/job1"}}
	srv := newServer(t, Config{Run: run})

	t.Run("not started", func(t *testing.T) {
		var got struct{ Data RunResponse }
		if code := do(t, http.MethodGet, srv.URL+"/api/v1/run", &got); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if got.Data.Started || got.Data.JobID != "job1" {
			t.Errorf("run = %+v", got.Data)
		}

		var errResp ErrorResponse
		if code := do(t, http.MethodGet, srv.URL+"/api/v1/run/steps", &errResp); code != http.StatusConflict {
			t.Errorf("steps status = %d, want 409", code)
		}
		if errResp.Error.Code != ErrCodeInvalidState {
			t.Errorf("error code = %s", errResp.Error.Code)
		}
	})

	t.Run("running", func(t *testing.T) {
		run.status = workflow.RunStatus{
			JobID:   "job1",
			Started: true,
			Stats:   workflow.RunStats{TotalSteps: 3, CompletedSteps: 2, RunningSteps: 1},
			Steps: []workflow.StepStatus{
				{ID: "root", Type: domain.StepTypeRoot, State: domain.StepStateDone},
				{ID: "design", Type: domain.StepTypeDesign, State: domain.StepStateDone},
				{ID: "trim", Type: domain.StepTypeStandard, Module: "shell", State: domain.StepStateWorking},
			},
		}

		var summary struct{ Data RunResponse }
		do(t, http.MethodGet, srv.URL+"/api/v1/run", &summary)
		if summary.Data.Total != 3 || summary.Data.Completed != 2 || summary.Data.Running != 1 {
			t.Errorf("run = %+v", summary.Data)
		}

		var steps struct{ Data []StepResponse }
		if code := do(t, http.MethodGet, srv.URL+"/api/v1/run/steps", &steps); code != http.StatusOK {
			t.Fatalf("steps status = %d", code)
		}
		want := []StepResponse{
			{ID: "root", Type: domain.StepTypeRoot.String(), State: "DONE"},
			{ID: "design", Type: domain.StepTypeDesign.String(), State: "DONE"},
			{ID: "trim", Type: domain.StepTypeStandard.String(), Module: "shell", State: "WORKING"},
		}
		if diff := cmp.Diff(want, steps.Data); diff != "" {
			t.Errorf("steps mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestJobRoutes(t *testing.T) {
	waiting := domain.NewQueueJob("job1-trim_1", []string{"seqflow", "exectask", "trim_1.ctx"})
	done := domain.NewQueueJob("job1-trim_2", []string{"seqflow", "exectask", "trim_2.ctx"})
	done.Status = domain.JobStatusComplete
	done.ExitCode = 0

	store := &fakeJobs{jobs: map[uuid.UUID]*domain.QueueJob{
		waiting.ID: waiting,
		done.ID:    done,
	}}
	srv := newServer(t, Config{Jobs: store})

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{"get waiting", http.MethodGet, "/api/v1/jobs/" + waiting.ID.String(), http.StatusOK},
		{"get unknown", http.MethodGet, "/api/v1/jobs/" + uuid.NewString(), http.StatusNotFound},
		{"get invalid id", http.MethodGet, "/api/v1/jobs/abc", http.StatusBadRequest},
		{"cancel complete", http.MethodPost, "/api/v1/jobs/" + done.ID.String() + "/cancel", http.StatusConflict},
		{"cancel unknown", http.MethodPost, "/api/v1/jobs/" + uuid.NewString() + "/cancel", http.StatusNotFound},
		{"cancel waiting", http.MethodPost, "/api/v1/jobs/" + waiting.ID.String() + "/cancel", http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, tt.method, srv.URL+tt.path, nil); code != tt.wantCode {
				t.Errorf("status = %d, want %d", code, tt.wantCode)
			}
		})
	}

	if diff := cmp.Diff([]uuid.UUID{waiting.ID}, store.cancelled); diff != "" {
		t.Errorf("cancelled mismatch (-want +got):\n%s", diff)
	}

	var got struct{ Data JobResponse }
	do(t, http.MethodGet, srv.URL+"/api/v1/jobs/"+done.ID.String(), &got)
	if got.Data.ExitCode == nil || *got.Data.ExitCode != 0 {
		t.Errorf("exit code = %v, want 0", got.Data.ExitCode)
	}
	if got.Data.Status != string(domain.JobStatusComplete) {
		t.Errorf("status = %s", got.Data.Status)
	}
}
