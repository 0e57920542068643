package domain

// WorkflowSpec — декларативное описание workflow.
//
// Это то, что читается из файла workflow (YAML или HCL) и превращается
// движком в граф шагов.
type WorkflowSpec struct {
	// Name — имя workflow.
	Name string `json:"name" yaml:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Author — автор.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Globals — глобальные параметры, доступные в шаблонах как {{ .Globals.x }}.
	Globals map[string]string `json:"globals,omitempty" yaml:"globals,omitempty"`

	// Formats — дополнительные форматы данных.
	Formats []DataFormat `json:"formats,omitempty" yaml:"formats,omitempty"`

	// FirstSteps — шаги, выполняемые сразу после FIRST.
	FirstSteps []StepSpec `json:"first_steps,omitempty" yaml:"first_steps,omitempty"`

	// Steps — основные шаги.
	Steps []StepSpec `json:"steps" yaml:"steps"`

	// EndSteps — шаги, добавляемые в конец.
	EndSteps []StepSpec `json:"end_steps,omitempty" yaml:"end_steps,omitempty"`

	// Design — исходные данные. Может задаваться отдельным файлом.
	Design *Design `json:"design,omitempty" yaml:"design,omitempty"`
}

// StepSpec — определение шага в workflow.
type StepSpec struct {
	// ID — уникальный идентификатор шага.
	ID string `json:"id" yaml:"id"`

	// Module — имя модуля, реализующего шаг.
	Module string `json:"module" yaml:"module"`

	// Version — требуемая версия модуля. Пусто — любая.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Parameters — параметры модуля. Значения — шаблоны.
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Skip — шаг не выполняется, но его выходы считаются существующими.
	Skip bool `json:"skip,omitempty" yaml:"skip,omitempty"`

	// DiscardOutput — не копировать результаты в выходной каталог.
	DiscardOutput bool `json:"discard_output,omitempty" yaml:"discard_output,omitempty"`

	// RequiredMemory — требуемая память в MB. 0 — по умолчанию.
	RequiredMemory int `json:"required_memory,omitempty" yaml:"required_memory,omitempty"`

	// RequiredProcessors — требуемое число процессоров. 0 — по умолчанию.
	RequiredProcessors int `json:"required_processors,omitempty" yaml:"required_processors,omitempty"`

	// DataProduct — политика объединения данных (свободная строка).
	DataProduct string `json:"data_product,omitempty" yaml:"data_product,omitempty"`

	// OutputDir — каталог результатов шага, если отличается от рабочего.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// Inputs — явные связи: имя входного порта → выход другого шага.
	Inputs map[string]PortRef `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// PortRef — ссылка на выходной порт шага.
type PortRef struct {
	Step string `json:"step" yaml:"step"`
	Port string `json:"port" yaml:"port"`
}

func (r PortRef) String() string {
	return r.Step + "." + r.Port
}
