package domain

import "fmt"

// StepType — тип шага в графе workflow.
//
// Набор закрыт: поведение построения графа выбирается через
// исчерпывающий switch по типу, а не через наследование.
//
// Порядок в графе:
//
//	ROOT → DESIGN → CHECKER → [GENERATOR...] → [installers] → FIRST → STANDARD...
type StepType int

const (
	// StepTypeRoot — корневой шаг, от которого зависят все остальные.
	StepTypeRoot StepType = iota

	// StepTypeDesign — шаг, публикующий исходные данные дизайна (по одному порту на формат).
	StepTypeDesign

	// StepTypeChecker — шаг проверки входных данных. Генераторы вставляются сразу после него.
	StepTypeChecker

	// StepTypeFirst — граница: после него начинаются пользовательские шаги.
	StepTypeFirst

	// StepTypeGenerator — синтезированный шаг, генерирующий формат без другого источника.
	StepTypeGenerator

	// StepTypeStandard — обычный шаг обработки.
	StepTypeStandard
)

// stepTypeNames — имена типов. Они же зарезервированные ID шагов.
var stepTypeNames = [...]string{
	StepTypeRoot:      "ROOT",
	StepTypeDesign:    "DESIGN",
	StepTypeChecker:   "CHECKER",
	StepTypeFirst:     "FIRST",
	StepTypeGenerator: "GENERATOR",
	StepTypeStandard:  "STANDARD",
}

// String возвращает имя типа.
func (t StepType) String() string {
	if t < 0 || int(t) >= len(stepTypeNames) {
		return "UNKNOWN"
	}
	return stepTypeNames[t]
}

// DefaultStepID возвращает ID инфраструктурного шага этого типа.
// Для GENERATOR и STANDARD возвращает пустую строку.
func (t StepType) DefaultStepID() string {
	switch t {
	case StepTypeRoot:
		return "root"
	case StepTypeDesign:
		return "design"
	case StepTypeChecker:
		return "checker"
	case StepTypeFirst:
		return "first"
	case StepTypeGenerator, StepTypeStandard:
		return ""
	}
	return ""
}

// IsInfrastructure возвращает true для шагов, которые не запускают tasks.
func (t StepType) IsInfrastructure() bool {
	switch t {
	case StepTypeRoot, StepTypeDesign, StepTypeChecker, StepTypeFirst:
		return true
	case StepTypeGenerator, StepTypeStandard:
		return false
	}
	return false
}

// AllStepTypes возвращает все типы шагов в каноническом порядке.
func AllStepTypes() []StepType {
	return []StepType{
		StepTypeRoot,
		StepTypeDesign,
		StepTypeChecker,
		StepTypeFirst,
		StepTypeGenerator,
		StepTypeStandard,
	}
}

// IsReservedStepID проверяет, совпадает ли ID с именем одного из типов шагов.
func IsReservedStepID(id string) bool {
	for _, t := range AllStepTypes() {
		if t.String() == id {
			return true
		}
	}
	return false
}

// MarshalText реализует encoding.TextMarshaler.
func (t StepType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(stepTypeNames) {
		return nil, fmt.Errorf("unknown step type: %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (t *StepType) UnmarshalText(text []byte) error {
	parsed, err := ParseStepType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseStepType парсит имя типа шага.
func ParseStepType(s string) (StepType, error) {
	for _, t := range AllStepTypes() {
		if t.String() == s {
			return t, nil
		}
	}
	return StepTypeStandard, fmt.Errorf("unknown step type: %q", s)
}
