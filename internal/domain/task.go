package domain

import (
	"fmt"
	"time"
)

// TaskContext — контекст выполнения task.
//
// Контекст сериализуется в файл <prefix>.ctx и должен полностью
// восстанавливаться в другом процессе (режим exectask), поэтому
// содержит только данные, без ссылок на граф.
type TaskContext struct {
	// ID — числовой идентификатор task, уникален в рамках запуска.
	ID int `json:"id"`

	// JobID — идентификатор запуска workflow.
	JobID string `json:"job_id"`

	// StepID — ID шага, которому принадлежит task.
	StepID string `json:"step_id"`

	// StepType — тип шага.
	StepType StepType `json:"step_type"`

	// Module — имя модуля.
	Module string `json:"module"`

	// ModuleVersion — версия модуля.
	ModuleVersion string `json:"module_version,omitempty"`

	// Parameters — параметры модуля (уже отрендеренные).
	Parameters []Parameter `json:"parameters,omitempty"`

	// Sample — ID образца. Пусто для task без партиции.
	Sample string `json:"sample,omitempty"`

	// Prefix — префикс файлов task (<step>_<id>).
	Prefix string `json:"prefix"`

	// TaskDir — каталог файлов task (.ctx, .data, .done, .result).
	TaskDir string `json:"task_dir"`

	// WorkDir — рабочий каталог task. Принадлежит только этому task.
	WorkDir string `json:"work_dir"`

	// OutputDir — каталог результатов шага.
	OutputDir string `json:"output_dir"`

	// Inputs — входные данные по портам.
	Inputs map[string][]DataRef `json:"inputs,omitempty"`

	// Outputs — ожидаемые выходные данные по портам.
	Outputs map[string][]DataRef `json:"outputs,omitempty"`

	// RequiredMemory — требуемая память в MB (0 — по умолчанию).
	RequiredMemory int `json:"required_memory,omitempty"`

	// RequiredProcessors — требуемое число процессоров.
	RequiredProcessors int `json:"required_processors,omitempty"`

	// LogLevel — уровень логирования для дочернего процесса.
	LogLevel string `json:"log_level,omitempty"`

	// CreatedAt — время создания task.
	CreatedAt time.Time `json:"created_at"`
}

// TaskPrefix строит префикс файлов task.
func TaskPrefix(stepID string, id int) string {
	return fmt.Sprintf("%s_%d", stepID, id)
}

// String возвращает краткое описание для логов.
func (c *TaskContext) String() string {
	if c.Sample != "" {
		return fmt.Sprintf("task #%d (step %s, sample %s)", c.ID, c.StepID, c.Sample)
	}
	return fmt.Sprintf("task #%d (step %s)", c.ID, c.StepID)
}

// TaskResult — результат выполнения task.
type TaskResult struct {
	// TaskID — ID task.
	TaskID int `json:"task_id"`

	// StepID — ID шага.
	StepID string `json:"step_id"`

	// Success — true при успешном выполнении.
	Success bool `json:"success"`

	// Counters — счётчики модуля (прочитано, записано и т.д.).
	Counters map[string]int64 `json:"counters,omitempty"`

	// Description — описание результата.
	Description string `json:"description,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения.
	FinishedAt time.Time `json:"finished_at"`

	// Outputs — созданные данные по портам. Хранятся отдельно в <prefix>.data.
	Outputs map[string][]DataRef `json:"-"`
}

// Duration возвращает продолжительность выполнения.
func (r *TaskResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// State возвращает финальное состояние task по результату.
func (r *TaskResult) State() TaskState {
	if r != nil && r.Success {
		return TaskStateDone
	}
	return TaskStateFailed
}
