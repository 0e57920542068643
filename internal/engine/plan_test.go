package engine

import (
	"errors"
	"testing"
)

func chainWorkflow(t *testing.T) (*Workflow, []*Step) {
	t.Helper()

	// a → b → d
	// a → c → d
	w := NewWorkflow(Config{Logger: testLogger()})
	steps := []*Step{standardStep("a"), standardStep("b"), standardStep("c"), standardStep("d")}
	for _, s := range steps {
		if err := w.AddStep(-1, s); err != nil {
			t.Fatal(err)
		}
	}
	a, b, c, d := steps[0], steps[1], steps[2], steps[3]
	b.addDependency(a)
	c.addDependency(a)
	d.addDependency(b)
	d.addDependency(c)
	return w, steps
}

func TestNewPlan_Diamond(t *testing.T) {
	w, steps := chainWorkflow(t)

	plan, err := NewPlan(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Size() != 4 {
		t.Errorf("expected 4 nodes, got %d", plan.Size())
	}
	if len(plan.RootNodes) != 1 || plan.RootNodes[0].Step != steps[0] {
		t.Errorf("expected single root a")
	}

	d := plan.Node(steps[3])
	if d.InDegree != 2 {
		t.Errorf("d should have inDegree 2, got %d", d.InDegree)
	}

	// Топологический порядок: a первый, d последний
	if plan.Order[0].ID != "a" || plan.Order[3].ID != "d" {
		t.Errorf("unexpected order: %s ... %s", plan.Order[0].ID, plan.Order[3].ID)
	}
}

func TestNewPlan_Cycle(t *testing.T) {
	w, steps := chainWorkflow(t)
	steps[0].addDependency(steps[3])

	_, err := NewPlan(w)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestPlan_GetReadyNodes(t *testing.T) {
	w, steps := chainWorkflow(t)
	a, b, c, d := steps[0], steps[1], steps[2], steps[3]

	plan, err := NewPlan(w)
	if err != nil {
		t.Fatal(err)
	}

	completed := make(map[*Step]bool)
	running := make(map[*Step]bool)

	ready := plan.GetReadyNodes(completed, running)
	if len(ready) != 1 || ready[0].Step != a {
		t.Fatalf("only a should be ready initially")
	}

	completed[a] = true
	running[c] = true
	ready = plan.GetReadyNodes(completed, running)
	if len(ready) != 1 || ready[0].Step != b {
		t.Fatalf("only b should be ready when c is running")
	}

	completed[b] = true
	completed[c] = true
	delete(running, c)
	ready = plan.GetReadyNodes(completed, running)
	if len(ready) != 1 || ready[0].Step != d {
		t.Fatalf("d should be ready after b and c")
	}

	completed[d] = true
	if !plan.IsComplete(completed) {
		t.Error("plan should be complete")
	}
}
