// Package metrics exposes the scheduler's runtime counters and gauges to
// Prometheus.
//
// Series (each registered name carries a scheduler_ prefix, e.g.
// scheduler_jobs_created_total):
//
//	jobs_created_total     - jobs allocated via Context.CreateJob
//	jobs_submitted_total    - jobs accepted by Context.SubmitJob
//	jobs_completed_total    - jobs whose work count reached zero
//	jobs_canceled_total     - jobs observed canceled in WaitReadyJob or Cancel
//	job_wait_seconds        - time between SubmitJob and the job becoming Ready
//	job_run_seconds         - time between WaitReadyJob returning a job and its completion
//	queue_depth             - current entries per ready queue, labeled by queue id
//	buffer_pool_in_use      - job buffers currently referenced by a context or live job
//	context_pool_in_use     - contexts currently checked out of the scheduler
//
// HTTP endpoint: exposed on /metrics via promhttp, matching the
// teacher's queue_* series convention but renamed for this domain.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the scheduler's Prometheus metrics collector.
type Collector struct {
	jobsCreated   prometheus.Counter
	jobsSubmitted prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsCanceled  prometheus.Counter

	jobWaitSeconds prometheus.Histogram
	jobRunSeconds  prometheus.Histogram

	queueDepth *prometheus.GaugeVec

	bufferPoolInUse  prometheus.Gauge
	contextPoolInUse prometheus.Gauge
}

// NewCollector creates and registers a scheduler metrics collector.
func NewCollector() *Collector {
	c := &Collector{
		jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_jobs_created_total",
			Help: "Total number of jobs allocated from the job buffer arena.",
		}),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_jobs_submitted_total",
			Help: "Total number of jobs accepted by SubmitJob.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_jobs_completed_total",
			Help: "Total number of jobs whose work count reached zero.",
		}),
		jobsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_jobs_canceled_total",
			Help: "Total number of jobs observed canceled.",
		}),
		jobWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_job_wait_seconds",
			Help:    "Time between SubmitJob and the job becoming ready to run.",
			Buckets: prometheus.DefBuckets,
		}),
		jobRunSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_job_run_seconds",
			Help:    "Time between a job being taken off its queue and its completion.",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_queue_depth",
			Help: "Current number of ready jobs waiting in a queue.",
		}, []string{"queue_id"}),
		bufferPoolInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_buffer_pool_in_use",
			Help: "Job buffers currently referenced by a context or a live job.",
		}),
		contextPoolInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_context_pool_in_use",
			Help: "Contexts currently checked out of the scheduler.",
		}),
	}

	prometheus.MustRegister(
		c.jobsCreated,
		c.jobsSubmitted,
		c.jobsCompleted,
		c.jobsCanceled,
		c.jobWaitSeconds,
		c.jobRunSeconds,
		c.queueDepth,
		c.bufferPoolInUse,
		c.contextPoolInUse,
	)
	return c
}

// RecordCreated records a job allocation.
func (c *Collector) RecordCreated() { c.jobsCreated.Inc() }

// RecordSubmitted records a job accepted by SubmitJob.
func (c *Collector) RecordSubmitted() { c.jobsSubmitted.Inc() }

// RecordCompleted records a job reaching a zero work count, along with
// the time it spent running.
func (c *Collector) RecordCompleted(runSeconds float64) {
	c.jobsCompleted.Inc()
	c.jobRunSeconds.Observe(runSeconds)
}

// RecordCanceled records a job observed canceled.
func (c *Collector) RecordCanceled() { c.jobsCanceled.Inc() }

// RecordWait records the time a job spent between submission and
// becoming ready.
func (c *Collector) RecordWait(waitSeconds float64) {
	c.jobWaitSeconds.Observe(waitSeconds)
}

// SetQueueDepth updates the depth gauge for a single queue.
func (c *Collector) SetQueueDepth(queueID uint32, depth int) {
	c.queueDepth.WithLabelValues(strconv.FormatUint(uint64(queueID), 10)).Set(float64(depth))
}

// SetPoolStats updates the buffer and context pool utilization gauges.
func (c *Collector) SetPoolStats(buffersInUse, contextsInUse int) {
	c.bufferPoolInUse.Set(float64(buffersInUse))
	c.contextPoolInUse.Set(float64(contextsInUse))
}

// StartServer serves /metrics on the given port until the process exits
// or the listener fails.
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, nil)
}
