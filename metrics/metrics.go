// Package metrics exposes the engine's Prometheus instrumentation, mirroring
// the atomic-counter-promoted-to-exported-metric idiom used by aistore's
// xact package (see xact/xs/tcb.go's atomic.Int64/atomic.Int32 counters).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Factory holds every metric a factory.Factory reports. Registering twice
// under the same name (two factories in one process) is handled by giving
// each set of metrics a "factory" label rather than separate collectors.
type Factory struct {
	TasksSubmitted *prometheus.CounterVec
	TasksSucceeded *prometheus.CounterVec
	TasksPending   *prometheus.CounterVec
	TasksRejected  *prometheus.CounterVec
	TasksErrored   *prometheus.CounterVec
	QueueDepth     *prometheus.GaugeVec
	TaskDuration   *prometheus.HistogramVec
}

// NewFactory builds and registers (against reg, or the default registerer
// when reg is nil) the metric family used by factory.Factory. Safe to call
// once per process; pass a dedicated *prometheus.Registry as reg in tests to
// avoid collisions across parallel test runs.
func NewFactory(reg prometheus.Registerer) *Factory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := &Factory{
		TasksSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "machines",
			Subsystem: "factory",
			Name:      "tasks_submitted_total",
			Help:      "Tasks added to a factory's queue.",
		}, []string{"factory"}),
		TasksSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "machines",
			Subsystem: "factory",
			Name:      "tasks_succeeded_total",
			Help:      "Tasks that finished with status SUCCESS.",
		}, []string{"factory"}),
		TasksPending: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "machines",
			Subsystem: "factory",
			Name:      "tasks_pending_total",
			Help:      "Task runs that ended PENDING and were re-queued.",
		}, []string{"factory"}),
		TasksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "machines",
			Subsystem: "factory",
			Name:      "tasks_rejected_total",
			Help:      "Tasks that finished with status REJECTED.",
		}, []string{"factory"}),
		TasksErrored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "machines",
			Subsystem: "factory",
			Name:      "tasks_errored_total",
			Help:      "Tasks that finished with status ERROR.",
		}, []string{"factory"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "machines",
			Subsystem: "factory",
			Name:      "queue_depth",
			Help:      "Current number of tasks waiting in a factory's queue.",
		}, []string{"factory"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "machines",
			Subsystem: "factory",
			Name:      "task_duration_seconds",
			Help:      "Wall time of one task.SafeRun call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"factory"}),
	}
	reg.MustRegister(
		f.TasksSubmitted, f.TasksSucceeded, f.TasksPending,
		f.TasksRejected, f.TasksErrored, f.QueueDepth, f.TaskDuration,
	)
	return f
}
