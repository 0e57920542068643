package cli

import (
	"context"
	"fmt"

	"github.com/shaiso/Seqflow/internal/cluster"
	"github.com/shaiso/Seqflow/internal/config"
	"github.com/shaiso/Seqflow/internal/mq"
	"github.com/shaiso/Seqflow/internal/repo"
	"github.com/shaiso/Seqflow/internal/scheduler"
	"github.com/shaiso/Seqflow/internal/storage"
	"github.com/shaiso/Seqflow/internal/telemetry"
	"github.com/shaiso/Seqflow/internal/workflow"
)

// schedulerFactory создаёт фабрику планировщика task по Settings.Scheduler.
// Возвращаемая функция освобождает ресурсы бэкенда.
func (a *app) schedulerFactory(ctx context.Context, reg *storage.Registry, metrics *telemetry.Metrics) (workflow.SchedulerFactory, func(), error) {
	s := a.settings

	switch s.Scheduler {
	case config.SchedulerLocal:
		runner := scheduler.NewTaskRunner(scheduler.RunnerConfig{
			Modules: a.modules,
			Storage: reg,
			Logger:  a.logger,
		})
		factory := func(onResult scheduler.ResultHandler) (scheduler.TaskScheduler, error) {
			return scheduler.NewLocal(scheduler.LocalConfig{
				Threads:  s.LocalThreads,
				Runner:   runner,
				OnResult: onResult,
				Metrics:  metrics,
				Logger:   a.logger,
			}), nil
		}
		return factory, func() {}, nil

	case config.SchedulerProcess:
		backend := cluster.NewProcessBackend(cluster.ProcessConfig{
			Processors: s.LocalThreads,
			Logger:     a.logger,
		})
		return a.clusterFactory(backend, reg, metrics), backend.Close, nil

	case config.SchedulerKube:
		backend, err := cluster.NewKubeBackend(cluster.KubeConfig{
			Kubeconfig:     s.Kube.Kubeconfig,
			Namespace:      s.Kube.Namespace,
			Image:          s.Kube.Image,
			ServiceAccount: s.Kube.ServiceAccount,
			VolumeClaim:    s.Kube.VolumeClaim,
			MountPath:      s.Kube.MountPath,
			Logger:         a.logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return a.clusterFactory(backend, reg, metrics), func() {}, nil

	case config.SchedulerQueue:
		backend, closeFn, err := a.queueBackend(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a.clusterFactory(backend, reg, metrics), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownScheduler, s.Scheduler)
	}
}

// clusterFactory создаёт фабрику ClusterScheduler поверх backend.
func (a *app) clusterFactory(backend scheduler.Backend, reg *storage.Registry, metrics *telemetry.Metrics) workflow.SchedulerFactory {
	s := a.settings
	return func(onResult scheduler.ResultHandler) (scheduler.TaskScheduler, error) {
		return scheduler.NewCluster(scheduler.ClusterConfig{
			Backend:       backend,
			Storage:       reg,
			Program:       s.Program,
			RuntimePath:   s.RuntimePath,
			WorkingDir:    s.WorkingDir,
			LogLevel:      s.LogLevel,
			DefaultMemory: s.DefaultClusterMemory,
			ProcessMemory: s.ProcessMemory,
			PollInterval:  s.PollInterval,
			OnResult:      onResult,
			Metrics:       metrics,
			Logger:        a.logger,
		}), nil
	}
}

// queueBackend подключается к PostgreSQL и RabbitMQ.
// Без RabbitMQ задания только записываются в таблицу: worker
// подбирает их опросом.
func (a *app) queueBackend(ctx context.Context) (*cluster.QueueBackend, func(), error) {
	s := a.settings

	pool, err := repo.NewPool(ctx, s.Queue.DBURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to job database: %w", err)
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	amqpURL := s.Queue.AMQPURL
	if amqpURL == "" {
		amqpURL = mq.DefaultURL()
	}

	var publisher cluster.JobPublisher
	conn, err := mq.NewConnection(amqpURL, a.logger)
	if err != nil {
		a.logger.Warn("RabbitMQ not available, jobs will be picked up by polling", "error", err)
	} else if err := mq.SetupTopology(ctx, conn); err != nil {
		a.logger.Warn("failed to setup RabbitMQ topology", "error", err)
		_ = conn.Close()
		conn = nil
	} else {
		publisher = mq.NewPublisher(conn, a.logger)
	}

	closeFn := func() {
		if conn != nil {
			_ = conn.Close()
		}
		pool.Close()
	}

	backend := cluster.NewQueueBackend(cluster.QueueConfig{
		Store:     repo.NewJobRepo(pool),
		Publisher: publisher,
		Logger:    a.logger,
	})
	return backend, closeFn, nil
}
