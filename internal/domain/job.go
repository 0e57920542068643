package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus — статус задания в очереди кластера.
//
// Жизненный цикл:
//
//	WAITING → RUNNING → COMPLETE
type JobStatus string

const (
	// JobStatusWaiting — задание ждёт worker'а.
	JobStatusWaiting JobStatus = "WAITING"

	// JobStatusRunning — worker выполняет команду задания.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusComplete — команда завершилась, ExitCode заполнен.
	JobStatusComplete JobStatus = "COMPLETE"
)

// ExitCodeCancelled — код завершения отменённого задания.
const ExitCodeCancelled = -1

// Расширения файлов вывода задания в каталоге task: <name>.out, <name>.err.
const (
	JobStdoutExtension = ".out"
	JobStderrExtension = ".err"
)

// QueueJob — задание, выполняемое worker'ом из очереди.
//
// Задание создаёт планировщик кластера: команда запускает один task
// ("seqflow exectask <ctxfile>"). Результат task пишется в файлы task,
// в задании хранится только код завершения.
type QueueJob struct {
	// ID — уникальный идентификатор задания.
	ID uuid.UUID `json:"id"`

	// Name — имя задания (<jobID>-<prefix>).
	Name string `json:"name"`

	// Command — команда с аргументами.
	Command []string `json:"command"`

	// TaskDir — каталог файлов task. Туда же пишутся stdout и stderr.
	TaskDir string `json:"task_dir"`

	// TaskID — ID task.
	TaskID int `json:"task_id"`

	// MemoryMB — требуемая память.
	MemoryMB int `json:"memory_mb"`

	// Processors — требуемое число процессоров.
	Processors int `json:"processors"`

	// Status — текущий статус.
	Status JobStatus `json:"status"`

	// ExitCode — код завершения команды. Значим для COMPLETE.
	ExitCode int `json:"exit_code"`

	// CancelRequested — запрошена отмена задания.
	CancelRequested bool `json:"cancel_requested"`

	// WorkerID — worker, выполняющий задание.
	WorkerID string `json:"worker_id,omitempty"`

	// Error — ошибка запуска или выполнения команды.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время начала выполнения. Nil, пока задание ждёт.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения. Nil, пока задание не завершено.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewQueueJob создаёт задание в статусе WAITING.
func NewQueueJob(name string, command []string) *QueueJob {
	return &QueueJob{
		ID:        uuid.New(),
		Name:      name,
		Command:   command,
		Status:    JobStatusWaiting,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если задание ещё не завершено.
func (j *QueueJob) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// MarkRunning переводит задание в статус RUNNING.
func (j *QueueJob) MarkRunning(workerID string) {
	now := time.Now()
	j.Status = JobStatusRunning
	j.WorkerID = workerID
	j.StartedAt = &now
}

// MarkComplete переводит задание в статус COMPLETE с кодом завершения.
func (j *QueueJob) MarkComplete(exitCode int, err string) {
	now := time.Now()
	j.Status = JobStatusComplete
	j.ExitCode = exitCode
	j.Error = err
	j.FinishedAt = &now
}
