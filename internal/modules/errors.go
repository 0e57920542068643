package modules

import (
	"errors"
	"fmt"
)

// Ошибки модулей.
var (
	// ErrModuleNotFound — модуль не найден в реестре.
	ErrModuleNotFound = errors.New("module not found")

	// ErrVersionMismatch — зарегистрированная версия не совпадает с требуемой.
	ErrVersionMismatch = errors.New("module version mismatch")

	// ErrInvalidParameter — неверный параметр модуля.
	ErrInvalidParameter = errors.New("invalid module parameter")

	// ErrMissingInput — task не получил данных для входа.
	ErrMissingInput = errors.New("missing task input")

	// ErrTaskCancelled — выполнение task отменено.
	ErrTaskCancelled = errors.New("task execution cancelled")
)

// invalidParameter оборачивает ErrInvalidParameter с именем модуля и параметра.
func invalidParameter(module, name, message string) error {
	return fmt.Errorf("%w: %s.%s: %s", ErrInvalidParameter, module, name, message)
}
