package worker

import "errors"

// Ошибки воркера.
var (
	// ErrJobNotFound — задание не найдено в БД.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotWaiting — задание не в статусе WAITING (взято другим worker'ом или отменено).
	ErrJobNotWaiting = errors.New("job is not in WAITING status")

	// ErrEmptyCommand — у задания нет команды.
	ErrEmptyCommand = errors.New("job command is empty")

	// ErrJobCancelled — отмена задания запрошена планировщиком.
	ErrJobCancelled = errors.New("job cancelled")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
