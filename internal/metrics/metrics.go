package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/streamkeeper/pkg/streamkeeper"
)

// Tick outcomes used as the "outcome" label.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds Prometheus counters and gauges for the keeper. It implements
// streamkeeper.EventHandler.
type Metrics struct {
	registry *prometheus.Registry

	ticksTotal          *prometheus.CounterVec
	tickDuration        prometheus.Histogram
	broadcastsCreated   prometheus.Counter
	rotationsTotal      prometheus.Counter
	goLiveFailuresTotal prometheus.Counter
	corruptStateTotal   prometheus.Counter
	lastTickTimestamp   prometheus.Gauge

	broadcastAge prometheus.Gauge
	daemonState  prometheus.Gauge

	requestsTotal prometheus.Counter
	errorsTotal   prometheus.Counter
}

// New creates and registers Prometheus metrics for the keeper.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ticksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamkeeper_ticks_total",
			Help: "Total number of ticks by action and outcome",
		}, []string{"action", "outcome"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamkeeper_tick_duration_seconds",
			Help:    "Wall time spent in a tick",
			Buckets: []float64{0.01, 0.1, 1, 5, 15, 30, 60, 120, 300},
		}),
		broadcastsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamkeeper_broadcasts_created_total",
			Help: "Total number of broadcasts provisioned and recorded",
		}),
		rotationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamkeeper_rotations_total",
			Help: "Total number of completed rotations",
		}),
		goLiveFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamkeeper_go_live_failures_total",
			Help: "Total number of new broadcasts that were not confirmed live",
		}),
		corruptStateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamkeeper_corrupt_state_total",
			Help: "Total number of ticks aborted by an unreadable state file",
		}),
		lastTickTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streamkeeper_last_tick_timestamp_seconds",
			Help: "Unix time of the last tick that ran",
		}),
		broadcastAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streamkeeper_broadcast_age_seconds",
			Help: "Age of the managed broadcast, 0 when none is managed",
		}),
		daemonState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streamkeeper_state",
			Help: "Run state: 0 stopped, 1 starting, 2 running, 3 stopping, 4 crashed",
		}),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamkeeper_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamkeeper_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
	}

	registry.MustRegister(
		m.ticksTotal,
		m.tickDuration,
		m.broadcastsCreated,
		m.rotationsTotal,
		m.goLiveFailuresTotal,
		m.corruptStateTotal,
		m.lastTickTimestamp,
		m.broadcastAge,
		m.daemonState,
		m.requestsTotal,
		m.errorsTotal,
	)

	return m
}

// OnStateChange records the daemon state.
func (m *Metrics) OnStateChange(e streamkeeper.StateChangeEvent) {
	m.daemonState.Set(float64(e.Current))
}

// OnTick records the outcome of a tick.
func (m *Metrics) OnTick(e streamkeeper.TickEvent) {
	if e.Skipped {
		m.ticksTotal.WithLabelValues("none", OutcomeSkipped).Inc()
		return
	}

	m.lastTickTimestamp.Set(float64(e.At.Unix()))
	m.tickDuration.Observe(e.Duration.Seconds())

	action := e.Action.String()
	if e.Err != nil {
		m.ticksTotal.WithLabelValues(action, OutcomeFailed).Inc()
		var corrupt *streamkeeper.CorruptStateError
		if errors.As(e.Err, &corrupt) {
			m.corruptStateTotal.Inc()
		}
		return
	}
	m.ticksTotal.WithLabelValues(action, OutcomeOK).Inc()

	switch e.Action {
	case streamkeeper.ActionCreate:
		m.broadcastsCreated.Inc()
	case streamkeeper.ActionRotate:
		m.broadcastsCreated.Inc()
		m.rotationsTotal.Inc()
	}
	if e.Action != streamkeeper.ActionNoOp && !e.Live {
		m.goLiveFailuresTotal.Inc()
	}
}

// SetBroadcastAge sets the broadcast age gauge in seconds.
func (m *Metrics) SetBroadcastAge(seconds float64) {
	m.broadcastAge.Set(seconds)
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
