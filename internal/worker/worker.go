package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/mq"
	"github.com/shaiso/Seqflow/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval   = 10 * time.Second
	defaultCancelInterval = 5 * time.Second
	defaultBatchSize      = 50
	defaultCompleteTries  = 5
)

// JobStore — хранилище заданий (repo.JobRepo).
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueJob, error)
	Claim(ctx context.Context, id uuid.UUID, workerID string) (*domain.QueueJob, error)
	Complete(ctx context.Context, id uuid.UUID, exitCode int, errMsg string) error
	IsCancelRequested(ctx context.Context, id uuid.UUID) (bool, error)
	ListWaiting(ctx context.Context, limit int) ([]domain.QueueJob, error)
}

// Worker выполняет задания планировщика кластера.
//
// Worker:
//   - Получает события job.submitted из RabbitMQ (event-driven)
//   - Периодически проверяет задания WAITING в БД (polling fallback)
//   - Забирает задание (WAITING → RUNNING) и запускает его команду
//   - Следит за запросом отмены
//   - Записывает код завершения (COMPLETE)
//
// Workers масштабируются горизонтально: задание забирает тот worker,
// чей Claim сработал первым.
type Worker struct {
	store    JobStore
	conn     *mq.Connection
	executor Executor
	metrics  *telemetry.Metrics

	consumer *mq.Consumer

	workerID       string
	pollInterval   time.Duration
	cancelInterval time.Duration
	batchSize      int
	slots          *semaphore.Weighted
	maxJobs        int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	jobsWg     sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Store JobStore

	// Conn — соединение с RabbitMQ. Если nil — только polling.
	Conn *mq.Connection

	// Executor (опционально; если nil — CommandExecutor).
	Executor Executor

	// WorkerID — идентификатор worker'а (default: <hostname>-<uuid>).
	WorkerID string

	// MaxJobs — число одновременно выполняемых заданий (default: runtime.NumCPU()).
	MaxJobs int

	PollInterval   time.Duration // интервал polling (default: 10s)
	CancelInterval time.Duration // интервал проверки отмены (default: 5s)
	BatchSize      int           // количество заданий за один poll (default: 50)

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	cancelInterval := cfg.CancelInterval
	if cancelInterval <= 0 {
		cancelInterval = defaultCancelInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = runtime.NumCPU()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := cfg.Executor
	if executor == nil {
		executor = &CommandExecutor{}
	}

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = defaultWorkerID()
	}

	return &Worker{
		store:          cfg.Store,
		conn:           cfg.Conn,
		executor:       executor,
		metrics:        cfg.Metrics,
		workerID:       workerID,
		pollInterval:   pollInterval,
		cancelInterval: cancelInterval,
		batchSize:      batchSize,
		slots:          semaphore.NewWeighted(int64(maxJobs)),
		maxJobs:        maxJobs,
		logger:         logger.With("worker_id", workerID),
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Consumer для jobs.submitted (если задано соединение)
//   - Polling горутину для fallback
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"max_jobs", w.maxJobs,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueJobsSubmitted),
			Handler:  w.handleJobSubmitted,
			Prefetch: w.maxJobs,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("job consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker: выполняющиеся задания отменяются,
// их код завершения записывается.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()
	w.jobsWg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// ID возвращает идентификатор worker'а.
func (w *Worker) ID() string {
	return w.workerID
}

// pollLoop — цикл polling для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем задания, созданные пока worker был выключен)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.store.ListWaiting(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to list waiting jobs", "error", err)
		}
		return
	}

	if len(jobs) == 0 {
		return
	}

	w.logger.Debug("poll found waiting jobs", "count", len(jobs))

	for i := range jobs {
		job := &jobs[i]
		if job.CancelRequested {
			continue
		}

		if err := w.processJob(ctx, job.ID); err != nil {
			if errors.Is(err, ErrJobNotWaiting) || errors.Is(err, ErrJobNotFound) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to process job from poll",
				"job_id", job.ID,
				"error", err,
			)
		}
	}
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "-" + uuid.NewString()[:8]
}
