package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/storage"
)

// Расширения файлов task.
const (
	ContextExtension = ".ctx"
	DataExtension    = ".data"
	DoneExtension    = ".done"
	ResultExtension  = ".result"
)

// TaskFile возвращает location файла task с расширением ext.
func TaskFile(tc *domain.TaskContext, ext string) string {
	return storage.Join(tc.TaskDir, tc.Prefix+ext)
}

// WriteContext сериализует контекст task в <prefix>.ctx.
func WriteContext(ctx context.Context, reg *storage.Registry, tc *domain.TaskContext) (string, error) {
	location := TaskFile(tc, ContextExtension)

	data, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal task context: %w", err)
	}
	if err := reg.WriteFile(ctx, location, data); err != nil {
		return "", fmt.Errorf("write task context: %w", err)
	}
	return location, nil
}

// ReadContext читает контекст task из файла.
func ReadContext(ctx context.Context, reg *storage.Registry, location string) (*domain.TaskContext, error) {
	data, err := reg.ReadFile(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read task context: %w", err)
	}

	var tc domain.TaskContext
	if err := json.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("unmarshal task context %s: %w", location, err)
	}
	return &tc, nil
}

// doneMarker — содержимое файла <prefix>.done.
type doneMarker struct {
	TaskID     int              `json:"task_id"`
	State      domain.TaskState `json:"state"`
	FinishedAt time.Time        `json:"finished_at"`
}

// WriteResult записывает <prefix>.data, <prefix>.result и последним
// <prefix>.done. Маркер пишется и для неуспешных task.
func WriteResult(ctx context.Context, reg *storage.Registry, tc *domain.TaskContext, result *domain.TaskResult) error {
	outputs := result.Outputs
	if outputs == nil {
		outputs = map[string][]domain.DataRef{}
	}
	data, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task data: %w", err)
	}
	if err := reg.WriteFile(ctx, TaskFile(tc, DataExtension), data); err != nil {
		return fmt.Errorf("write task data: %w", err)
	}

	data, err = json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task result: %w", err)
	}
	if err := reg.WriteFile(ctx, TaskFile(tc, ResultExtension), data); err != nil {
		return fmt.Errorf("write task result: %w", err)
	}

	data, err = json.Marshal(doneMarker{TaskID: tc.ID, State: result.State(), FinishedAt: result.FinishedAt})
	if err != nil {
		return fmt.Errorf("marshal done marker: %w", err)
	}
	if err := reg.WriteFile(ctx, TaskFile(tc, DoneExtension), data); err != nil {
		return fmt.Errorf("write done marker: %w", err)
	}
	return nil
}

// LoadResult читает результат task, выполненного в другом процессе.
//
// Без <prefix>.done возвращает ErrNoDoneFile. Выходные данные читаются
// из <prefix>.data в result.Outputs.
func LoadResult(ctx context.Context, reg *storage.Registry, tc *domain.TaskContext) (*domain.TaskResult, error) {
	exists, err := reg.Exists(ctx, TaskFile(tc, DoneExtension))
	if err != nil {
		return nil, fmt.Errorf("check done file: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w for task #%d in step %s", ErrNoDoneFile, tc.ID, tc.StepID)
	}

	data, err := reg.ReadFile(ctx, TaskFile(tc, DataExtension))
	if err != nil {
		return nil, fmt.Errorf("read task data: %w", err)
	}
	var outputs map[string][]domain.DataRef
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, fmt.Errorf("unmarshal task data: %w", err)
	}

	data, err = reg.ReadFile(ctx, TaskFile(tc, ResultExtension))
	if err != nil {
		return nil, fmt.Errorf("read task result: %w", err)
	}
	var result domain.TaskResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal task result: %w", err)
	}

	result.Outputs = outputs
	return &result, nil
}
