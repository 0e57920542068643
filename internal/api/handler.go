package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/workflow"
)

// RunSource — источник состояния запуска (workflow.Executor).
type RunSource interface {
	Status() workflow.RunStatus
}

// JobStore — таблица заданий очереди (repo.JobRepo).
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueJob, error)
	RequestCancel(ctx context.Context, id uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	run    RunSource
	jobs   JobStore
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
// Маршруты источника, равного nil, не регистрируются.
type Config struct {
	Run    RunSource
	Jobs   JobStore
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		run:    cfg.Run,
		jobs:   cfg.Jobs,
		logger: logger,
	}
}
