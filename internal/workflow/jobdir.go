package workflow

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/storage"
)

// Файлы каталога запуска.
const (
	WorkflowCopyFile = "workflow.yaml"
	WorkflowDOTFile  = "workflow.dot"
	LatestLinkName   = "seqflow-latest"
	TasksDirName     = "tasks"
	WorkDirName      = "work"
)

// saveJobDirectory создаёт каталог запуска, сохраняет копию workflow и
// граф, обновляет ссылку на последний запуск.
func (e *Executor) saveJobDirectory(ctx context.Context) error {
	if err := e.storage.MkdirAll(ctx, e.jobDir); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}

	if e.spec != nil {
		data, err := yaml.Marshal(e.spec)
		if err != nil {
			return fmt.Errorf("marshal workflow: %w", err)
		}
		if err := e.storage.WriteFile(ctx, storage.Join(e.jobDir, WorkflowCopyFile), data); err != nil {
			return fmt.Errorf("save workflow copy: %w", err)
		}
	}

	dot := engine.ToDOT(e.workflow)
	if err := e.storage.WriteFile(ctx, storage.Join(e.jobDir, WorkflowDOTFile), []byte(dot)); err != nil {
		return fmt.Errorf("save workflow graph: %w", err)
	}

	link := storage.Join(storage.Dir(e.jobDir), LatestLinkName)
	if err := e.storage.Symlink(ctx, storage.Base(e.jobDir), link); err != nil {
		e.logger.Warn("cannot create latest job link", "link", link, "error", err)
	}

	e.logger.Debug("job directory saved", "job_dir", e.jobDir)
	return nil
}
