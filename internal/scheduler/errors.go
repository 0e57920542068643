package scheduler

import "errors"

var (
	// ErrNotStarted — планировщик не запущен (Start не вызван).
	ErrNotStarted = errors.New("scheduler not started")

	// ErrSchedulerStopped — планировщик остановлен.
	ErrSchedulerStopped = errors.New("scheduler stopped")

	// ErrTaskAlreadySubmitted — task с таким ID уже передан планировщику.
	ErrTaskAlreadySubmitted = errors.New("task already submitted")

	// ErrUnknownTask — task не передан планировщику.
	ErrUnknownTask = errors.New("unknown task")

	// ErrNoResult — выполнение task не дало результата.
	ErrNoResult = errors.New("task produced no result")

	// ErrTaskCancelled — task отменён.
	ErrTaskCancelled = errors.New("task cancelled")

	// ErrNoDoneFile — файл <prefix>.done не найден.
	ErrNoDoneFile = errors.New("no done file found")

	// ErrInvalidExitCode — задание кластера завершилось с ненулевым кодом.
	ErrInvalidExitCode = errors.New("invalid task exit code")

	// ErrNilContext — передан nil контекст task.
	ErrNilContext = errors.New("task context is nil")
)
