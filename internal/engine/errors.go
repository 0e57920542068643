package engine

import "errors"

// Ошибки добавления шагов в граф.
var (
	// ErrNilStep — попытка добавить nil шаг.
	ErrNilStep = errors.New("cannot add nil step")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — шаг с таким ID уже добавлен.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrReservedStepID — ID совпадает с именем типа шага.
	ErrReservedStepID = errors.New("reserved step ID")

	// ErrStepPosition — позиция вставки за пределами списка.
	ErrStepPosition = errors.New("step position out of range")

	// ErrNoSteps — в workflow нет шагов для выполнения.
	ErrNoSteps = errors.New("there is no step to execute in the workflow")
)

// Ошибки конфигурации шагов и требований.
var (
	// ErrUnknownModule — модуль шага не найден.
	ErrUnknownModule = errors.New("unknown module")

	// ErrModuleConfiguration — модуль отверг параметры.
	ErrModuleConfiguration = errors.New("module configuration failed")

	// ErrStepConfigured — повторная конфигурация шага.
	ErrStepConfigured = errors.New("step already configured")

	// ErrRequirementUnavailable — обязательное требование недоступно и не устанавливается.
	ErrRequirementUnavailable = errors.New("requirement is not available")
)

// Ошибки разрешения зависимостей.
var (
	// ErrUnknownStep — явная связь ссылается на несуществующий шаг.
	ErrUnknownStep = errors.New("no workflow step found")

	// ErrUnknownPort — явная связь ссылается на несуществующий порт.
	ErrUnknownPort = errors.New("no port found")

	// ErrGeneratorWithoutOutput — генератор ничего не генерирует.
	ErrGeneratorWithoutOutput = errors.New("generator step does not generate anything")

	// ErrGeneratorManyOutputs — генератор генерирует больше одного формата.
	ErrGeneratorManyOutputs = errors.New("generator step generates more than one format")

	// ErrAmbiguousPorts — несколько несвязанных входов одного формата.
	ErrAmbiguousPorts = errors.New("step contains more than one port of the same format")

	// ErrUnresolvedInput — не найден источник данных для входа.
	ErrUnresolvedInput = errors.New("cannot find input data format")

	// ErrResolveDiverged — разрешение не сошлось за допустимое число проходов.
	ErrResolveDiverged = errors.New("dependency resolution did not converge")

	// ErrPortNotLinked — вход остался несвязанным.
	ErrPortNotLinked = errors.New("input port is not linked")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка конфигурации графа с контекстом.
type ValidationError struct {
	StepID  string // ID шага, где произошла ошибка
	Field   string // порт, параметр или поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
