// Seqflow Worker — выполняет задания планировщика очереди.
//
// Worker:
//   - Получает события job.submitted из RabbitMQ
//   - Периодически забирает задания WAITING из PostgreSQL
//   - Запускает команду задания (seqflow exectask ...)
//   - Записывает код завершения и следит за запросом отмены
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/shaiso/Seqflow/internal/api"
	"github.com/shaiso/Seqflow/internal/config"
	"github.com/shaiso/Seqflow/internal/mq"
	"github.com/shaiso/Seqflow/internal/repo"
	"github.com/shaiso/Seqflow/internal/telemetry"
	"github.com/shaiso/Seqflow/internal/worker"
)

const defaultMetricsAddr = ":8082"

func main() {
	settings := config.Default()
	fs := pflag.NewFlagSet("seqflow-worker", pflag.ExitOnError)
	settings.AddFlags(fs)
	configFile := fs.String("config", "", "config file (default: ./seqflow.yaml)")
	_ = fs.Parse(os.Args[1:])

	if err := config.Load(fs, *configFile, nil); err != nil {
		telemetry.SetupLogger("").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(settings.LogLevel)
	logger.Info("starting seqflow-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx, settings.Queue.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to prepare job table", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// RabbitMQ
	mqURL := settings.Queue.AMQPURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	jobRepo := repo.NewJobRepo(pool)

	w := worker.New(worker.Config{
		Store:        jobRepo,
		Conn:         mqConn,
		WorkerID:     settings.Worker.ID,
		MaxJobs:      settings.Worker.MaxJobs,
		PollInterval: settings.PollInterval,
		Metrics:      telemetry.NewMetrics(promReg),
		Logger:       logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz, /metrics, API заданий
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	api.NewHandler(api.Config{Jobs: jobRepo, Logger: logger}).RegisterRoutes(mux)

	addr := settings.MetricsAddr
	if addr == "" {
		addr = defaultMetricsAddr
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	w.Stop()
	logger.Info("seqflow-worker stopped")
}
