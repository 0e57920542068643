package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — метрики планировщиков и worker'а.
//
// Все методы допускают nil receiver: компоненты без метрик передают nil.
type Metrics struct {
	tasksSubmitted prometheus.Counter
	tasksFinished  *prometheus.CounterVec
	tasksRunning   prometheus.Gauge
	jobPolls       prometheus.Counter
	workerJobs     *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
// nil reg — prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		tasksSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "seqflow_tasks_submitted_total",
			Help: "Total tasks submitted to a scheduler",
		}),
		tasksFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seqflow_tasks_finished_total",
			Help: "Total finished tasks by final state",
		}, []string{"state"}),
		tasksRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "seqflow_tasks_running",
			Help: "Tasks currently running",
		}),
		jobPolls: factory.NewCounter(prometheus.CounterOpts{
			Name: "seqflow_job_polls_total",
			Help: "Total cluster job status queries",
		}),
		workerJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seqflow_worker_jobs_total",
			Help: "Total jobs executed by the worker by result",
		}, []string{"result"}),
	}
}

// TaskSubmitted учитывает переданный планировщику task.
func (m *Metrics) TaskSubmitted() {
	if m == nil {
		return
	}
	m.tasksSubmitted.Inc()
}

// TaskStarted учитывает начало выполнения task.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksRunning.Inc()
}

// TaskFinished учитывает завершение task. running — task был в RUNNING.
func (m *Metrics) TaskFinished(state string, running bool) {
	if m == nil {
		return
	}
	if running {
		m.tasksRunning.Dec()
	}
	m.tasksFinished.WithLabelValues(state).Inc()
}

// JobPolled учитывает запрос статуса задания кластера.
func (m *Metrics) JobPolled() {
	if m == nil {
		return
	}
	m.jobPolls.Inc()
}

// WorkerJob учитывает задание, выполненное worker'ом.
func (m *Metrics) WorkerJob(result string) {
	if m == nil {
		return
	}
	m.workerJobs.WithLabelValues(result).Inc()
}
