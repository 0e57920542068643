package workflowfile

import "errors"

// Ошибки чтения файла workflow.
var (
	// ErrUnknownFileFormat — расширение файла не соответствует ни одному формату.
	ErrUnknownFileFormat = errors.New("unknown workflow file format")

	// ErrParse — файл не удалось разобрать.
	ErrParse = errors.New("cannot parse workflow file")
)

// Ошибки валидации описания workflow.
var (
	// ErrEmptySteps — в workflow нет шагов.
	ErrEmptySteps = errors.New("workflow has no steps")

	// ErrEmptyModule — у шага не указан модуль.
	ErrEmptyModule = errors.New("step has empty module")

	// ErrSelfDependency — вход шага ссылается на сам шаг.
	ErrSelfDependency = errors.New("step depends on itself")

	// ErrMissingDependency — вход ссылается на несуществующий шаг.
	ErrMissingDependency = errors.New("input refers to unknown step")

	// ErrInvalidInput — в ссылке на вход не указан шаг или порт.
	ErrInvalidInput = errors.New("invalid input reference")

	// ErrInvalidResources — отрицательные требования к памяти или процессорам.
	ErrInvalidResources = errors.New("invalid resource requirements")

	// ErrInvalidSample — образец без ID или с повторяющимся ID.
	ErrInvalidSample = errors.New("invalid design sample")
)
