package workflow

import "errors"

// Ошибки выполнения workflow.
var (
	// ErrNoWorkflow — не передан граф workflow.
	ErrNoWorkflow = errors.New("workflow is nil")

	// ErrNoScheduler — не задана фабрика планировщика.
	ErrNoScheduler = errors.New("scheduler factory is nil")

	// ErrAlreadyRunning — Run уже вызывался для этого Executor.
	ErrAlreadyRunning = errors.New("workflow already running")

	// ErrStepFailed — task шага завершился неуспешно.
	ErrStepFailed = errors.New("step failed")

	// ErrRunCancelled — запуск отменён через контекст.
	ErrRunCancelled = errors.New("workflow run cancelled")

	// ErrStalled — нет готовых и выполняющихся шагов, но план не завершён.
	ErrStalled = errors.New("workflow stalled")
)
