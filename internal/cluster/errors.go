package cluster

import "errors"

var (
	// ErrUnknownJob — backend не знает задание с таким идентификатором.
	ErrUnknownJob = errors.New("unknown job")

	// ErrInvalidHandle — идентификатор задания имеет неверный формат.
	ErrInvalidHandle = errors.New("invalid job handle")

	// ErrEmptyCommand — у задания нет команды.
	ErrEmptyCommand = errors.New("job command is empty")

	// ErrNoImage — не задан образ контейнера для заданий Kubernetes.
	ErrNoImage = errors.New("container image is not set")
)
