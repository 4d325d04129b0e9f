// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "newsrelay"

// Delivery results used as the "result" label.
const (
	ResultSent      = "sent"
	ResultFailed    = "failed"
	ResultDuplicate = "duplicate"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeCompleted   = "completed"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeOverlapped  = "overlapped"
)

// Pipeline collects per-run counters.
type Pipeline struct {
	runs              *prometheus.CounterVec
	fetched           prometheus.Counter
	deliveries        *prometheus.CounterVec
	fallbacks         prometheus.Counter
	persistenceErrors prometheus.Counter
	runDuration       prometheus.Histogram
}

// NewPipeline registers the pipeline collectors on reg.
// A nil reg yields collectors that are counted but never exported.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome (completed, fetch_failed, overlapped).",
		}, []string{"outcome"}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_fetched_total",
			Help:      "Articles returned by content providers.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts by result.",
		}, []string{"result"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_fallbacks_total",
			Help:      "Summaries replaced by truncated article content.",
		}),
		persistenceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Dedup store failures after a successful delivery.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}

	if reg != nil {
		reg.MustRegister(p.runs, p.fetched, p.deliveries, p.fallbacks, p.persistenceErrors, p.runDuration)
	}
	return p
}

// RunFinished records one run with its outcome and duration.
func (p *Pipeline) RunFinished(outcome string, took time.Duration) {
	if p == nil {
		return
	}
	p.runs.WithLabelValues(outcome).Inc()
	p.runDuration.Observe(took.Seconds())
}

// RunSkipped records a run that did not start because another was active.
func (p *Pipeline) RunSkipped() {
	if p == nil {
		return
	}
	p.runs.WithLabelValues(OutcomeOverlapped).Inc()
}

// Fetched adds n provider articles.
func (p *Pipeline) Fetched(n int) {
	if p == nil {
		return
	}
	p.fetched.Add(float64(n))
}

// Delivery counts one attempt with the given result.
func (p *Pipeline) Delivery(result string) {
	if p == nil {
		return
	}
	p.deliveries.WithLabelValues(result).Inc()
}

// Fallback counts one fallback summary.
func (p *Pipeline) Fallback() {
	if p == nil {
		return
	}
	p.fallbacks.Inc()
}

// PersistenceError counts one failed MarkSent.
func (p *Pipeline) PersistenceError() {
	if p == nil {
		return
	}
	p.persistenceErrors.Inc()
}
