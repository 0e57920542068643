package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shaiso/Seqflow/internal/engine"
)

const (
	// EnvPrefix — префикс переменных окружения.
	EnvPrefix = "SEQFLOW"

	// DefaultConfigName — имя файла конфигурации без расширения.
	DefaultConfigName = "seqflow"

	// keyAnnotation — аннотация флага с ключом файла конфигурации.
	keyAnnotation = "seqflow.io/config-key"
)

// Типы планировщика task.
const (
	SchedulerLocal   = "local"
	SchedulerProcess = "process"
	SchedulerKube    = "kube"
	SchedulerQueue   = "queue"
)

// Settings — настройки запуска.
type Settings struct {
	// OutputDir — глобальный выходной каталог.
	OutputDir string

	// WorkingDir — рабочий каталог (флаг -w).
	WorkingDir string

	// JobDir — каталог запуска. Пусто — вычисляется из WorkingDir.
	JobDir string

	// LogLevel — DEBUG, INFO, WARN или ERROR.
	LogLevel string

	// RuntimePath — каталог установки seqflow (флаг -j).
	RuntimePath string

	// Program — исполняемый файл для exectask. Пусто — текущий.
	Program string

	// DefaultClusterMemory — память заданий кластера по умолчанию, MB.
	DefaultClusterMemory int

	// ProcessMemory — память, если другие значения не заданы, MB.
	ProcessMemory int

	// PollInterval — интервал опроса статуса заданий.
	PollInterval time.Duration

	// LocalThreads — число процессоров локального планировщика.
	LocalThreads int

	// ResolveMaxPasses — ограничение проходов разрешения зависимостей.
	ResolveMaxPasses int

	// Scheduler — local, process, kube или queue.
	Scheduler string

	// MetricsAddr — адрес HTTP сервера /metrics. Пусто — не запускать.
	MetricsAddr string

	Kube   KubeSettings
	Queue  QueueSettings
	S3     S3Settings
	Worker WorkerSettings
}

// KubeSettings — настройки планировщика Kubernetes.
type KubeSettings struct {
	Namespace      string
	Image          string
	Kubeconfig     string
	ServiceAccount string
	VolumeClaim    string
	MountPath      string
}

// QueueSettings — настройки очереди заданий.
// Пустые URL заменяются адресами для локальной разработки.
type QueueSettings struct {
	AMQPURL string
	DBURL   string
}

// S3Settings — настройки протокола s3.
type S3Settings struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// WorkerSettings — настройки seqflow-worker.
type WorkerSettings struct {
	ID      string
	MaxJobs int
}

// Default возвращает настройки по умолчанию.
func Default() *Settings {
	return &Settings{
		LogLevel:         "INFO",
		ProcessMemory:    4096,
		PollInterval:     5 * time.Second,
		LocalThreads:     runtime.NumCPU(),
		ResolveMaxPasses: engine.DefaultResolveMaxPasses,
		Scheduler:        SchedulerLocal,
		Kube: KubeSettings{
			Namespace: "default",
			MountPath: "/data",
		},
		Worker: WorkerSettings{
			MaxJobs: 4,
		},
	}
}

// AddFlags регистрирует поля Settings как флаги.
// Текущие значения полей становятся значениями флагов по умолчанию.
func (s *Settings) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&s.OutputDir, "output-dir", "o", s.OutputDir, "global output directory")
	fs.StringVarP(&s.WorkingDir, "working-dir", "w", s.WorkingDir, "working directory")
	fs.StringVar(&s.JobDir, "job-dir", s.JobDir, "job directory (default: <working-dir>/seqflow-<time>-<id>)")
	fs.StringVar(&s.LogLevel, "loglevel", s.LogLevel, "log level: DEBUG, INFO, WARN, ERROR")
	fs.StringVarP(&s.RuntimePath, "runtime-path", "j", s.RuntimePath, "seqflow installation directory")
	fs.StringVar(&s.Program, "program", s.Program, "seqflow executable used by cluster jobs")
	fs.IntVar(&s.DefaultClusterMemory, "cluster-memory", s.DefaultClusterMemory, "default cluster job memory, MB")
	fs.IntVar(&s.ProcessMemory, "process-memory", s.ProcessMemory, "fallback process memory, MB")
	fs.DurationVar(&s.PollInterval, "poll-interval", s.PollInterval, "cluster job status poll interval")
	fs.IntVar(&s.LocalThreads, "threads", s.LocalThreads, "processors available to the local scheduler")
	fs.IntVar(&s.ResolveMaxPasses, "resolve-max-passes", s.ResolveMaxPasses, "dependency resolution pass limit")
	fs.StringVar(&s.Scheduler, "scheduler", s.Scheduler, "task scheduler: local, process, kube, queue")
	fs.StringVar(&s.MetricsAddr, "metrics-addr", s.MetricsAddr, "serve /metrics on this address")

	fs.StringVar(&s.Kube.Namespace, "kube-namespace", s.Kube.Namespace, "kubernetes namespace for task jobs")
	fs.StringVar(&s.Kube.Image, "kube-image", s.Kube.Image, "container image with seqflow")
	fs.StringVar(&s.Kube.Kubeconfig, "kube-kubeconfig", s.Kube.Kubeconfig, "kubeconfig path (default: in-cluster)")
	fs.StringVar(&s.Kube.ServiceAccount, "kube-service-account", s.Kube.ServiceAccount, "service account of task pods")
	fs.StringVar(&s.Kube.VolumeClaim, "kube-volume-claim", s.Kube.VolumeClaim, "persistent volume claim with job data")
	fs.StringVar(&s.Kube.MountPath, "kube-mount-path", s.Kube.MountPath, "mount path of the volume claim")

	fs.StringVar(&s.Queue.AMQPURL, "queue-amqp-url", s.Queue.AMQPURL, "RabbitMQ URL")
	fs.StringVar(&s.Queue.DBURL, "queue-db-url", s.Queue.DBURL, "PostgreSQL URL of the job table")

	fs.StringVar(&s.S3.Endpoint, "s3-endpoint", s.S3.Endpoint, "S3 endpoint URL")
	fs.StringVar(&s.S3.Region, "s3-region", s.S3.Region, "S3 region")
	fs.StringVar(&s.S3.AccessKey, "s3-access-key", s.S3.AccessKey, "S3 access key")
	fs.StringVar(&s.S3.SecretKey, "s3-secret-key", s.S3.SecretKey, "S3 secret key")

	fs.StringVar(&s.Worker.ID, "worker-id", s.Worker.ID, "worker id (default: hostname-pid)")
	fs.IntVar(&s.Worker.MaxJobs, "worker-max-jobs", s.Worker.MaxJobs, "jobs executed concurrently by the worker")

	// Ключи файла, не выводимые из имени флага.
	setKey(fs, "output-dir", "output_dir")
	setKey(fs, "working-dir", "working_dir")
	setKey(fs, "job-dir", "job_dir")
	setKey(fs, "runtime-path", "runtime_path")
	setKey(fs, "cluster-memory", "cluster_memory")
	setKey(fs, "process-memory", "process_memory")
	setKey(fs, "poll-interval", "poll_interval")
	setKey(fs, "resolve-max-passes", "resolve_max_passes")
	setKey(fs, "metrics-addr", "metrics_addr")
	setKey(fs, "kube-service-account", "kube.service_account")
	setKey(fs, "kube-volume-claim", "kube.volume_claim")
	setKey(fs, "kube-mount-path", "kube.mount_path")
	setKey(fs, "queue-amqp-url", "queue.amqp_url")
	setKey(fs, "queue-db-url", "queue.db_url")
	setKey(fs, "s3-access-key", "s3.access_key")
	setKey(fs, "s3-secret-key", "s3.secret_key")
	setKey(fs, "worker-max-jobs", "worker.max_jobs")
}

func setKey(fs *pflag.FlagSet, name, key string) {
	_ = fs.SetAnnotation(name, keyAnnotation, []string{key})
}

// ConfigKey возвращает ключ файла конфигурации для флага.
func ConfigKey(f *pflag.Flag) string {
	if keys := f.Annotations[keyAnnotation]; len(keys) > 0 {
		return keys[0]
	}
	return strings.ReplaceAll(f.Name, "-", ".")
}

// EnvKey возвращает имя переменной окружения для флага.
func EnvKey(f *pflag.Flag) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
}

// Load заполняет флаги, не заданные в командной строке, из файла
// конфигурации и окружения.
//
// configFile — явный путь к файлу; если он пуст, ищется seqflow.yaml
// в текущем каталоге, и его отсутствие не является ошибкой.
func Load(fs *pflag.FlagSet, configFile string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = true
	})

	if err := loadConfigFile(fs, configFile, explicit, logger); err != nil {
		return err
	}
	return loadEnv(fs, explicit, logger)
}

func loadConfigFile(fs *pflag.FlagSet, configFile string, explicit map[string]bool, logger *slog.Logger) error {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logger.Debug("no config file found")
			return nil
		}
		return fmt.Errorf("%w: %w", ErrConfigFile, err)
	}
	logger.Debug("config file loaded", "file", v.ConfigFileUsed())

	var setErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if setErr != nil || explicit[f.Name] {
			return
		}
		key := ConfigKey(f)
		if !v.IsSet(key) {
			return
		}
		val := v.GetString(key)
		if err := f.Value.Set(val); err != nil {
			setErr = fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, val, err)
			return
		}
		logger.Debug("config from file", "key", key)
	})
	return setErr
}

func loadEnv(fs *pflag.FlagSet, explicit map[string]bool, logger *slog.Logger) error {
	var setErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if setErr != nil || explicit[f.Name] {
			return
		}
		key := EnvKey(f)
		val, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if err := f.Value.Set(val); err != nil {
			setErr = fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, val, err)
			return
		}
		logger.Debug("config from env", "key", key)
	})
	return setErr
}

// Validate проверяет согласованность настроек.
func (s *Settings) Validate() error {
	switch s.Scheduler {
	case SchedulerLocal, SchedulerProcess, SchedulerKube, SchedulerQueue:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScheduler, s.Scheduler)
	}

	if s.LocalThreads < 1 {
		return fmt.Errorf("%w: threads must be positive, got %d", ErrInvalidValue, s.LocalThreads)
	}
	if s.DefaultClusterMemory < 0 || s.ProcessMemory < 0 {
		return fmt.Errorf("%w: memory must not be negative", ErrInvalidValue)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidValue, s.PollInterval)
	}
	if s.Scheduler == SchedulerKube && s.Kube.Image == "" {
		return fmt.Errorf("%w: kube scheduler requires an image", ErrInvalidValue)
	}
	return nil
}

// EngineSettings возвращает настройки построения графа.
func (s *Settings) EngineSettings() engine.Settings {
	return engine.Settings{
		OutputDir:        s.OutputDir,
		WorkingDir:       s.WorkingDir,
		ResolveMaxPasses: s.ResolveMaxPasses,
	}
}
