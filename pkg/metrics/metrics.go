// Package metrics provides Prometheus instrumentation for task pools.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace is the metric namespace used by all collectors
const Namespace = "taskpool"

// Registry holds all metric instances for task pools.
type Registry struct {
	TasksCommitted *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksCancelled *prometheus.CounterVec
	WorkerPanics   *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	Workers        *prometheus.GaugeVec
	WorkersActive  *prometheus.GaugeVec
	QueueLength    *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Registry{
		TasksCommitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "tasks",
				Name:      "committed_total",
				Help:      "Total number of tasks committed to the pool",
			},
			[]string{"pool"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "tasks",
				Name:      "completed_total",
				Help:      "Total number of tasks that delivered a value",
			},
			[]string{"pool"},
		),

		TasksCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "tasks",
				Name:      "cancelled_total",
				Help:      "Total number of tasks resolved as cancelled",
			},
			[]string{"pool"},
		),

		WorkerPanics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "workers",
				Name:      "panics_total",
				Help:      "Total number of workers terminated by a task panic",
			},
			[]string{"pool"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "tasks",
				Name:      "duration_seconds",
				Help:      "Time workers spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool"},
		),

		Workers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "workers",
				Name:      "alive",
				Help:      "Number of worker goroutines that have not exited",
			},
			[]string{"pool"},
		),

		WorkersActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "workers",
				Name:      "active",
				Help:      "Number of workers currently executing a task",
			},
			[]string{"pool"},
		),

		QueueLength: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "queue_length",
				Help:      "Number of tasks waiting in the scheduler",
			},
			[]string{"pool"},
		),
	}
}

// PoolObserver records events for a single named pool. A nil *PoolObserver
// is valid and records nothing.
type PoolObserver struct {
	registry *Registry
	name     string
}

// ForPool returns an observer bound to the pool label
func (r *Registry) ForPool(name string) *PoolObserver {
	if r == nil {
		return nil
	}
	return &PoolObserver{registry: r, name: name}
}

// Committed records a committed task
func (o *PoolObserver) Committed() {
	if o == nil {
		return
	}
	o.registry.TasksCommitted.WithLabelValues(o.name).Inc()
}

// Completed records a task that delivered a value
func (o *PoolObserver) Completed() {
	if o == nil {
		return
	}
	o.registry.TasksCompleted.WithLabelValues(o.name).Inc()
}

// Cancelled records a task resolved as cancelled
func (o *PoolObserver) Cancelled() {
	if o == nil {
		return
	}
	o.registry.TasksCancelled.WithLabelValues(o.name).Inc()
}

// WorkerPanicked records a worker lost to a task panic
func (o *PoolObserver) WorkerPanicked() {
	if o == nil {
		return
	}
	o.registry.WorkerPanics.WithLabelValues(o.name).Inc()
}

// Executed records the execution time of one task
func (o *PoolObserver) Executed(d time.Duration) {
	if o == nil {
		return
	}
	o.registry.TaskDuration.WithLabelValues(o.name).Observe(d.Seconds())
}

// SetWorkers updates the alive and active worker gauges
func (o *PoolObserver) SetWorkers(alive, active int) {
	if o == nil {
		return
	}
	o.registry.Workers.WithLabelValues(o.name).Set(float64(alive))
	o.registry.WorkersActive.WithLabelValues(o.name).Set(float64(active))
}

// SetQueueLength updates the queue length gauge
func (o *PoolObserver) SetQueueLength(n int) {
	if o == nil {
		return
	}
	o.registry.QueueLength.WithLabelValues(o.name).Set(float64(n))
}
