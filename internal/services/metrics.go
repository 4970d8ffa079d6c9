package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions prometheus.Gauge
	ticks          prometheus.Counter
	saves          *prometheus.CounterVec
	saveDuration   prometheus.Histogram
	conflicts      prometheus.Counter
	taps           *prometheus.CounterVec
	actions        *prometheus.CounterVec
	adminActions   *prometheus.CounterVec
	srgMined       prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "srg_active_sessions",
			Help: "Player sessions with a running accrual loop",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "srg_ticks_total",
			Help: "Accrual ticks applied across all sessions",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "srg_profile_saves_total",
			Help: "Profile writes by origin and result",
		}, []string{"origin", "result"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "srg_profile_save_duration_seconds",
			Help:    "Latency of profile writes",
			Buckets: prometheus.DefBuckets,
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "srg_profile_version_conflicts_total",
			Help: "Player saves that had to be rebased",
		}),
		taps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "srg_taps_total",
			Help: "Tap attempts by outcome",
		}, []string{"outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "srg_player_actions_total",
			Help: "Player actions by name and result",
		}, []string{"action", "result"}),
		adminActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "srg_admin_actions_total",
			Help: "Admin actions by name and result",
		}, []string{"action", "result"}),
		srgMined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "srg_mined_total",
			Help: "SRG credited by passive production and taps",
		}),
	}

	m.registry.MustRegister(
		m.activeSessions, m.ticks, m.saves, m.saveDuration, m.conflicts,
		m.taps, m.actions, m.adminActions, m.srgMined,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) RecordTick(mined float64) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	if mined > 0 {
		m.srgMined.Add(mined)
	}
}

func (m *Metrics) RecordSave(origin string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(origin, resultLabel(err)).Inc()
	m.saveDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) RecordTap(outcome string, reward float64) {
	if m == nil {
		return
	}
	m.taps.WithLabelValues(outcome).Inc()
	if reward > 0 {
		m.srgMined.Add(reward)
	}
}

func (m *Metrics) RecordAction(action string, err error) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, resultLabel(err)).Inc()
}

func (m *Metrics) RecordAdminAction(action string, err error) {
	if m == nil {
		return
	}
	m.adminActions.WithLabelValues(action, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
