// Package metrics exposes tournament engine counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tournament"

// Label values for action outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	registry *prometheus.Registry

	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	conflicts      *prometheus.CounterVec
	matchUpdates   *prometheus.CounterVec
	overrides      prometheus.Counter
	eventsDropped  *prometheus.CounterVec
	eventsSent     *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Management actions by name and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Time spent executing a management action, including persistence.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_conflicts_total",
			Help:      "Optimistic write conflicts by operation.",
		}, []string{"operation"}),
		matchUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_updates_total",
			Help:      "Accepted match updates by resulting status.",
		}, []string{"status"}),
		overrides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_overrides_total",
			Help:      "Matches completed with a nonstandard score under an admin override.",
		}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "State change events discarded by a notifier.",
		}, []string{"notifier"}),
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "State change events delivered by a notifier.",
		}, []string{"notifier"}),
	}
	reg.MustRegister(
		r.actions, r.actionDuration, r.conflicts, r.matchUpdates, r.overrides, r.eventsDropped, r.eventsSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) RecordAction(action, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.actions.WithLabelValues(action, outcome).Inc()
	r.actionDuration.WithLabelValues(action).Observe(d.Seconds())
}

func (r *Recorder) RecordConflict(operation string) {
	if r == nil {
		return
	}
	r.conflicts.WithLabelValues(operation).Inc()
}

func (r *Recorder) RecordMatchUpdate(status string, overridden bool) {
	if r == nil {
		return
	}
	r.matchUpdates.WithLabelValues(status).Inc()
	if overridden {
		r.overrides.Inc()
	}
}

func (r *Recorder) RecordEventDropped(notifier string) {
	if r == nil {
		return
	}
	r.eventsDropped.WithLabelValues(notifier).Inc()
}

func (r *Recorder) RecordEventPublished(notifier string) {
	if r == nil {
		return
	}
	r.eventsSent.WithLabelValues(notifier).Inc()
}
