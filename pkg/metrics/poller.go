package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records metadata for polling cycles and event handling.
type PollerMetrics struct {
	cycleDuration *prometheus.HistogramVec
	cycleSuccess  *prometheus.CounterVec
	cycleFailure  *prometheus.CounterVec
	eventsFetched *prometheus.CounterVec
	eventsAcked   *prometheus.CounterVec
}

// NewPollerMetrics registers the poller metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	cycleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_cycle_duration_seconds",
		Help:    "Duration of polling cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	cycleSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_cycle_success",
		Help: "Successful polling cycles.",
	}, []string{"job"})
	cycleFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_cycle_failure",
		Help: "Failed polling cycles.",
	}, []string{"job"})
	eventsFetched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_events_fetched",
		Help: "Events returned by the marketplace polling endpoint.",
	}, []string{"merchant"})
	eventsAcked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_events_acked",
		Help: "Events acknowledged back to the marketplace.",
	}, []string{"merchant"})
	reg.MustRegister(cycleDuration, cycleSuccess, cycleFailure, eventsFetched, eventsAcked)
	return &PollerMetrics{
		cycleDuration: cycleDuration,
		cycleSuccess:  cycleSuccess,
		cycleFailure:  cycleFailure,
		eventsFetched: eventsFetched,
		eventsAcked:   eventsAcked,
	}
}

// ObserveCycle records the duration for the named job.
func (p *PollerMetrics) ObserveCycle(job string, duration time.Duration) {
	if p == nil || p.cycleDuration == nil {
		return
	}
	p.cycleDuration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncCycleSuccess increments the success counter for the named job.
func (p *PollerMetrics) IncCycleSuccess(job string) {
	if p == nil || p.cycleSuccess == nil {
		return
	}
	p.cycleSuccess.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncCycleFailure increments the failure counter for the named job.
func (p *PollerMetrics) IncCycleFailure(job string) {
	if p == nil || p.cycleFailure == nil {
		return
	}
	p.cycleFailure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddEventsFetched counts events pulled for one merchant.
func (p *PollerMetrics) AddEventsFetched(merchant string, n int) {
	if p == nil || p.eventsFetched == nil || n <= 0 {
		return
	}
	p.eventsFetched.WithLabelValues(normalizeLabel(merchant)).Add(float64(n))
}

// AddEventsAcked counts events acknowledged for one merchant.
func (p *PollerMetrics) AddEventsAcked(merchant string, n int) {
	if p == nil || p.eventsAcked == nil || n <= 0 {
		return
	}
	p.eventsAcked.WithLabelValues(normalizeLabel(merchant)).Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
