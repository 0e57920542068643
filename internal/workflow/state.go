package workflow

import (
	"sort"
	"sync"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
)

// RunState — состояние выполнения одного запуска в памяти.
//
// Содержит:
//   - План выполнения
//   - Статус каждого шага
//   - Незавершённые task шагов
//   - Токены: данные, созданные выходами завершённых шагов
type RunState struct {
	// Plan — граф зависимостей шагов.
	Plan *engine.Plan

	completed map[*engine.Step]bool
	running   map[*engine.Step]bool
	failed    map[*engine.Step]bool
	skipped   map[*engine.Step]bool

	// pending — число незавершённых task шага.
	pending map[*engine.Step]int

	// taskSteps — шаг task по ID task.
	taskSteps map[int]*engine.Step

	tokens map[*engine.OutputPort][]domain.DataRef

	// sampleOrder — позиция образца в design, для стабильного порядка токенов.
	sampleOrder map[string]int

	mu sync.RWMutex
}

// NewRunState создаёт RunState.
func NewRunState(plan *engine.Plan, design *domain.Design) *RunState {
	order := make(map[string]int)
	if design != nil {
		for i, s := range design.Samples {
			order[s.ID] = i
		}
	}

	return &RunState{
		Plan:        plan,
		completed:   make(map[*engine.Step]bool),
		running:     make(map[*engine.Step]bool),
		failed:      make(map[*engine.Step]bool),
		skipped:     make(map[*engine.Step]bool),
		pending:     make(map[*engine.Step]int),
		taskSteps:   make(map[int]*engine.Step),
		tokens:      make(map[*engine.OutputPort][]domain.DataRef),
		sampleOrder: order,
	}
}

// GetReadySteps возвращает шаги, готовые к выполнению.
// Шаг готов, если все его зависимости завершены и он ещё не запущен.
func (s *RunState) GetReadySteps() []*engine.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.Plan.GetReadyNodes(s.completed, s.running)
}

// MarkStepRunning помечает шаг как выполняющийся с указанными task.
func (s *RunState) MarkStepRunning(step *engine.Step, taskIDs []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running[step] = true
	s.pending[step] = len(taskIDs)
	for _, id := range taskIDs {
		s.taskSteps[id] = step
	}
}

// TaskStep возвращает шаг task.
func (s *RunState) TaskStep(taskID int) (*engine.Step, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	step, ok := s.taskSteps[taskID]
	return step, ok
}

// TaskFinished учитывает завершение task и возвращает true,
// если у шага не осталось незавершённых task.
func (s *RunState) TaskFinished(taskID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, ok := s.taskSteps[taskID]
	if !ok {
		return false
	}
	delete(s.taskSteps, taskID)
	s.pending[step]--
	return s.pending[step] <= 0
}

// AddTokens добавляет данные, созданные выходом шага.
func (s *RunState) AddTokens(port *engine.OutputPort, refs []domain.DataRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[port] = append(s.tokens[port], refs...)
}

// Tokens возвращает данные выхода в порядке: общие, затем по образцам design.
func (s *RunState) Tokens(port *engine.OutputPort) []domain.DataRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.DataRef(nil), s.tokens[port]...)
}

// MarkStepCompleted помечает шаг как успешно завершённый.
func (s *RunState) MarkStepCompleted(step *engine.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.running, step)
	delete(s.pending, step)
	s.completed[step] = true

	for _, out := range step.OutputPorts() {
		s.sortTokens(s.tokens[out])
	}
}

// MarkStepSkipped помечает шаг как пропущенный. Для зависимых шагов
// пропущенный шаг считается завершённым.
func (s *RunState) MarkStepSkipped(step *engine.Step) {
	s.MarkStepCompleted(step)

	s.mu.Lock()
	s.skipped[step] = true
	s.mu.Unlock()
}

// MarkStepFailed помечает шаг как упавший.
func (s *RunState) MarkStepFailed(step *engine.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.running, step)
	s.failed[step] = true
}

// IsStepCompleted проверяет, завершён ли шаг.
func (s *RunState) IsStepCompleted(step *engine.Step) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.completed[step]
}

// IsComplete проверяет, все ли шаги плана завершены.
func (s *RunState) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.Plan.IsComplete(s.completed)
}

// HasRunning возвращает true, если есть выполняющиеся шаги.
func (s *RunState) HasRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.running) > 0
}

// HasFailed проверяет, есть ли упавшие шаги.
func (s *RunState) HasFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.failed) > 0
}

// GetFailedSteps возвращает ID упавших шагов в порядке плана.
func (s *RunState) GetFailedSteps() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps := make([]string, 0, len(s.failed))
	for _, node := range s.Plan.Nodes {
		if s.failed[node.Step] {
			steps = append(steps, node.ID)
		}
	}
	return steps
}

// StepState возвращает состояние шага.
func (s *RunState) StepState(step *engine.Step) domain.StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.skipped[step]:
		return domain.StepStateSkipped
	case s.completed[step]:
		return domain.StepStateDone
	case s.failed[step]:
		return domain.StepStateFailed
	case s.running[step]:
		return domain.StepStateWorking
	default:
		return domain.StepStateWaiting
	}
}

// Stats возвращает статистику выполнения.
func (s *RunState) Stats() RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.Plan.Size()
	return RunStats{
		TotalSteps:     total,
		CompletedSteps: len(s.completed),
		SkippedSteps:   len(s.skipped),
		RunningSteps:   len(s.running),
		FailedSteps:    len(s.failed),
		PendingSteps:   total - len(s.completed) - len(s.running) - len(s.failed),
	}
}

// RunStats — статистика выполнения запуска.
type RunStats struct {
	TotalSteps     int
	CompletedSteps int
	SkippedSteps   int
	RunningSteps   int
	FailedSteps    int
	PendingSteps   int
}

// sortTokens упорядочивает данные: общие первыми, затем по образцам design.
// Вызывается под s.mu.
func (s *RunState) sortTokens(refs []domain.DataRef) {
	rank := func(r domain.DataRef) int {
		if r.IsShared() {
			return -1
		}
		if i, ok := s.sampleOrder[r.Sample]; ok {
			return i
		}
		return len(s.sampleOrder)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return rank(refs[i]) < rank(refs[j])
	})
}
