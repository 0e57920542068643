package modules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/storage"
)

// Module — реализация шага: граф (порты, требования) плюс выполнение.
type Module interface {
	engine.Module

	// Execute выполняет один task.
	// Модуль должен проверять ctx.Done() для graceful shutdown.
	Execute(ctx context.Context, task *Task) (*Result, error)
}

// SingleTasker — модуль, обрабатывающий данные всех образцов одним task.
type SingleTasker interface {
	SingleTask() bool
}

// IsSingleTask возвращает true, если модуль требует один task на шаг.
func IsSingleTask(m engine.Module) bool {
	st, ok := m.(SingleTasker)
	return ok && st.SingleTask()
}

// Factory создаёт новый экземпляр модуля.
// Каждый шаг получает свой экземпляр: Configure меняет его состояние.
type Factory func() Module

// Task — входные данные для выполнения модуля.
type Task struct {
	// Context — контекст task (входы, ожидаемые выходы, каталоги).
	Context *domain.TaskContext

	// Storage — протоколы доступа к данным.
	Storage *storage.Registry

	// Logger — логгер task.
	Logger *slog.Logger
}

// Input возвращает данные входного порта.
func (t *Task) Input(port string) []domain.DataRef {
	return t.Context.Inputs[port]
}

// Output возвращает ожидаемые данные выходного порта.
func (t *Task) Output(port string) []domain.DataRef {
	return t.Context.Outputs[port]
}

// Parameter возвращает значение параметра или пустую строку.
func (t *Task) Parameter(name string) string {
	p, _ := domain.LookupParameter(t.Context.Parameters, name)
	return p.Value
}

// Result — результат выполнения модуля.
type Result struct {
	// Counters — счётчики (прочитано, записано).
	Counters map[string]int64

	// Description — краткое описание сделанного.
	Description string

	// Outputs — созданные данные. nil — созданы ожидаемые выходы task.
	Outputs map[string][]domain.DataRef
}

// NewResult создаёт пустой Result.
func NewResult(description string) *Result {
	return &Result{
		Counters:    make(map[string]int64),
		Description: description,
	}
}

// checkContext возвращает ErrTaskCancelled, если ctx отменён.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTaskCancelled, ctx.Err())
	default:
		return nil
	}
}
