package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"workpool/internal/worker"
)

// Exporter holds the Prometheus collectors for one pool.
type Exporter struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFaulted   prometheus.Counter
	ActiveWorkers prometheus.Gauge
	JobLatency    prometheus.Histogram
}

// NewExporter creates the collectors and registers them with reg.
func NewExporter(reg prometheus.Registerer, namespace string) (*Exporter, error) {
	e := &Exporter{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs submitted to the pool",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that returned normally",
		}),
		JobsFaulted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_faulted_total",
			Help:      "Total number of jobs that panicked",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "active_workers",
			Help:      "Current number of running workers",
		}),
		JobLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution time",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		e.JobsSubmitted,
		e.JobsCompleted,
		e.JobsFaulted,
		e.ActiveWorkers,
		e.JobLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return e, nil
}

// Hooks returns pool hooks that feed the collectors.
func (e *Exporter) Hooks() worker.Hooks {
	return worker.Hooks{
		OnSubmit: e.JobsSubmitted.Inc,
		OnStart: func(int) {
			e.ActiveWorkers.Inc()
		},
		OnFinish: func(_ int, elapsed time.Duration) {
			e.JobsCompleted.Inc()
			e.JobLatency.Observe(elapsed.Seconds())
		},
		OnFault: func(*worker.JobPanic) {
			e.JobsFaulted.Inc()
		},
		OnExit: func(int) {
			e.ActiveWorkers.Dec()
		},
	}
}
