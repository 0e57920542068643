package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/Seqflow/internal/api"
	"github.com/shaiso/Seqflow/internal/config"
	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/modules"
	"github.com/shaiso/Seqflow/internal/storage"
	"github.com/shaiso/Seqflow/internal/telemetry"
	"github.com/shaiso/Seqflow/internal/workflowfile"
)

// app — состояние, общее для команд.
type app struct {
	settings   *config.Settings
	configFile string
	modules    *modules.Registry

	// logger задаётся заранее в тестах; иначе создаётся в setup.
	logger *slog.Logger
}

// NewRootCmd создаёт корневую команду seqflow.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(&app{
		settings: config.Default(),
		modules:  modules.DefaultRegistry(),
	}, version)
}

func newRootCmd(a *app, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "seqflow",
		Short:         "Seqflow — sequencing workflow engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	a.settings.AddFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./seqflow.yaml)")

	rootCmd.AddCommand(
		newExecCmd(a),
		newExecTaskCmd(a),
		newGraphCmd(a),
		newPlanCmd(a),
	)

	return rootCmd
}

// setup загружает настройки и создаёт логгер.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.Load(cmd.Flags(), a.configFile, a.logger); err != nil {
		return err
	}
	if err := a.settings.Validate(); err != nil {
		return err
	}
	if a.logger == nil {
		a.logger = telemetry.SetupLogger(a.settings.LogLevel)
	}
	return nil
}

// storage создаёт реестр протоколов. Протокол s3 регистрируется, если он
// настроен или одно из locations находится в S3.
func (a *app) storage(ctx context.Context, locations ...string) (*storage.Registry, error) {
	reg := storage.NewRegistry(storage.NewLocalProtocol())

	needS3 := a.settings.S3.Endpoint != "" || a.settings.S3.Region != ""
	for _, loc := range locations {
		if storage.Scheme(loc) == storage.SchemeS3 {
			needS3 = true
		}
	}
	if !needS3 {
		return reg, nil
	}

	s3, err := storage.NewS3Protocol(ctx, storage.S3Config{
		Endpoint:  a.settings.S3.Endpoint,
		Region:    a.settings.S3.Region,
		AccessKey: a.settings.S3.AccessKey,
		SecretKey: a.settings.S3.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	reg.Register(s3)
	return reg, nil
}

// loadWorkflow читает файл workflow и строит разрешённый граф.
// Непустой designFile заменяет design из файла workflow.
func (a *app) loadWorkflow(ctx context.Context, reg *storage.Registry, location, designFile string) (*domain.WorkflowSpec, *engine.Workflow, error) {
	spec, err := workflowfile.Load(ctx, reg, location)
	if err != nil {
		return nil, nil, err
	}

	if designFile != "" {
		design, err := workflowfile.LoadDesign(ctx, reg, designFile)
		if err != nil {
			return nil, nil, err
		}
		spec.Design = design
	}

	w, err := engine.Build(spec, engine.Config{
		Settings: a.settings.EngineSettings(),
		Modules:  a.modules,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build workflow %s: %w", location, err)
	}
	return spec, w, nil
}

// serveStatus запускает HTTP сервер /metrics и API состояния запуска,
// если задан MetricsAddr. Возвращает функцию остановки сервера.
func (a *app) serveStatus(reg *prometheus.Registry, run api.RunSource) func() {
	if a.settings.MetricsAddr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	api.NewHandler(api.Config{Run: run, Logger: a.logger}).RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              a.settings.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("status server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("status server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func (a *app) output(cmd *cobra.Command, jsonMode bool) *Output {
	return NewOutput(jsonMode, cmd.OutOrStdout(), cmd.ErrOrStderr())
}
