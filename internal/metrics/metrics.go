// Package metrics exposes Prometheus collectors for the post and session
// actions.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for ActionsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics groups every collector registered by New.
type Metrics struct {
	ActionsTotal   *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	SessionActive  prometheus.Gauge
	LogoutsTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postsync",
			Name:      "actions_total",
			Help:      "Completed actions by name and outcome.",
		}, []string{"action", "outcome"}),
		RemoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "postsync",
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of remote requests by HTTP method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		SessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "postsync",
			Name:      "session_active",
			Help:      "1 while a session token is held, 0 otherwise.",
		}),
		LogoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postsync",
			Name:      "logouts_total",
			Help:      "Session clears by reason (explicit or expired).",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{m.ActionsTotal, m.RemoteDuration, m.SessionActive, m.LogoutsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveAction counts one completed action.
func (m *Metrics) ObserveAction(action string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveRemote records the latency of one remote request.
func (m *Metrics) ObserveRemote(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.RemoteDuration.WithLabelValues(method).Observe(d.Seconds())
}

// SetSessionActive flips the session gauge.
func (m *Metrics) SetSessionActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.SessionActive.Set(1)
		return
	}
	m.SessionActive.Set(0)
}

// ObserveLogout counts a session clear.
func (m *Metrics) ObserveLogout(reason string) {
	if m == nil {
		return
	}
	m.LogoutsTotal.WithLabelValues(reason).Inc()
}
