package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron job outcomes.
const (
	CronOutcomeSuccess = "success"
	CronOutcomeFailure = "failure"
)

// CronJobMetrics covers the cron worker: per job runs, rows touched (orders
// expired, outbox rows purged), last success and cycles skipped because
// another worker held the lock.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	items       *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	skipped     prometheus.Counter
}

// NewCronJobMetrics registers the cron collectors on reg; nil disables them.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Duration of storefront cron jobs in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_items_total",
			Help: "Rows a cron job changed, e.g. orders expired.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cron_cycles_skipped_total",
			Help: "Cycles skipped because another worker held the lock.",
		}),
	}
	reg.MustRegister(m.duration, m.runs, m.items, m.lastSuccess, m.skipped)
	return m
}

// ObserveRun records one finished job run.
func (c *CronJobMetrics) ObserveRun(job string, duration time.Duration, items int, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(duration.Seconds())
	if items > 0 {
		c.items.WithLabelValues(job).Add(float64(items))
	}
	if err != nil {
		c.runs.WithLabelValues(job, CronOutcomeFailure).Inc()
		return
	}
	c.runs.WithLabelValues(job, CronOutcomeSuccess).Inc()
	c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

// CycleSkipped counts a cycle lost to lock contention.
func (c *CronJobMetrics) CycleSkipped() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
