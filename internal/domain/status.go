package domain

// TaskState — состояние task.
//
// Жизненный цикл:
//
//	CREATED → SUBMITTED → RUNNING → DONE
//	                              ↘ FAILED
//
// Автоматических повторов нет: FAILED — финальное состояние.
type TaskState string

const (
	// TaskStateCreated — task создан, но ещё не передан планировщику.
	TaskStateCreated TaskState = "CREATED"

	// TaskStateSubmitted — task передан backend'у.
	TaskStateSubmitted TaskState = "SUBMITTED"

	// TaskStateRunning — backend начал выполнение.
	TaskStateRunning TaskState = "RUNNING"

	// TaskStateDone — task успешно завершён.
	TaskStateDone TaskState = "DONE"

	// TaskStateFailed — task завершился с ошибкой.
	TaskStateFailed TaskState = "FAILED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateDone, TaskStateFailed:
		return true
	default:
		return false
	}
}

// CanTransition проверяет допустимость перехода из s в next.
func (s TaskState) CanTransition(next TaskState) bool {
	switch s {
	case TaskStateCreated:
		return next == TaskStateSubmitted
	case TaskStateSubmitted:
		return next == TaskStateRunning || next == TaskStateFailed
	case TaskStateRunning:
		return next == TaskStateDone || next == TaskStateFailed
	default:
		return false
	}
}

// StepState — состояние шага в запуске workflow.
//
// Жизненный цикл:
//
//	WAITING → READY → WORKING → DONE
//	                          ↘ FAILED
//	        (или) → SKIPPED
type StepState string

const (
	StepStateWaiting StepState = "WAITING"
	StepStateReady   StepState = "READY"
	StepStateWorking StepState = "WORKING"
	StepStateDone    StepState = "DONE"
	StepStateSkipped StepState = "SKIPPED"
	StepStateFailed  StepState = "FAILED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s StepState) IsTerminal() bool {
	switch s {
	case StepStateDone, StepStateSkipped, StepStateFailed:
		return true
	default:
		return false
	}
}
