package scheduler

import (
	"context"
	"fmt"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/storage"
)

// RunTaskFile выполняет task, сериализованный в ctxFile.
//
// Используется командой exectask в задании кластера: читает контекст,
// выполняет модуль и записывает <prefix>.data, <prefix>.result и
// последним <prefix>.done. Маркер пишется и для неуспешного task.
//
// Ошибка возвращается, только если контекст не прочитан или файлы
// результата не записаны. Неуспех самого task — result.Success == false.
func RunTaskFile(ctx context.Context, ctxFile string, runner *TaskRunner, reg *storage.Registry) (*domain.TaskResult, error) {
	tc, err := ReadContext(ctx, reg, ctxFile)
	if err != nil {
		return nil, err
	}
	if tc.TaskDir == "" {
		tc.TaskDir = storage.Dir(ctxFile)
	}

	runner.logger.Info("executing task from file", "task_id", tc.ID, "step_id", tc.StepID, "file", ctxFile)

	result := runner.Run(ctx, tc)

	// Маркер пишется даже после отмены: родитель ждёт .done.
	if err := WriteResult(context.WithoutCancel(ctx), reg, tc, result); err != nil {
		return result, fmt.Errorf("task #%d: %w", tc.ID, err)
	}
	return result, nil
}
