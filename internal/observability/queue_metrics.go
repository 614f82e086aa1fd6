package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueueCollector exposes metrics of the analysis job queue. It satisfies
// jobs.Recorder.
type QueueCollector struct {
	gatherer prometheus.Gatherer

	Queued       prometheus.Gauge
	WorkersBusy  prometheus.Gauge
	Jobs         *prometheus.CounterVec
	JobDurations *prometheus.HistogramVec
}

// NewQueueCollector registers job queue metrics against the provided registerer.
func NewQueueCollector(reg prometheus.Registerer) (*QueueCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	queued, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kinematics_jobs_queued",
		Help: "Number of analysis jobs waiting for a worker.",
	}), "kinematics_jobs_queued")
	if err != nil {
		return nil, err
	}

	busy, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kinematics_workers_busy",
		Help: "Number of workers currently running a job.",
	}), "kinematics_workers_busy")
	if err != nil {
		return nil, err
	}

	jobs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kinematics_jobs_total",
		Help: "Finished analysis jobs, labeled by priority and outcome.",
	}, []string{"priority", "outcome"}), "kinematics_jobs_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kinematics_job_duration_seconds",
		Help:    "Time from dequeue to result for an analysis job.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"priority"}), "kinematics_job_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &QueueCollector{
		gatherer:     gatherer,
		Queued:       queued,
		WorkersBusy:  busy,
		Jobs:         jobs,
		JobDurations: durations,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *QueueCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SetQueued updates the queue depth gauge.
func (c *QueueCollector) SetQueued(count int) {
	if c == nil || c.Queued == nil {
		return
	}
	c.Queued.Set(float64(count))
}

// SetBusy updates the busy worker gauge.
func (c *QueueCollector) SetBusy(count int) {
	if c == nil || c.WorkersBusy == nil {
		return
	}
	c.WorkersBusy.Set(float64(count))
}

// ObserveJob records a finished job.
func (c *QueueCollector) ObserveJob(priority, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Jobs != nil {
		c.Jobs.WithLabelValues(priority, outcome).Inc()
	}
	if c.JobDurations != nil {
		c.JobDurations.WithLabelValues(priority).Observe(elapsed.Seconds())
	}
}
