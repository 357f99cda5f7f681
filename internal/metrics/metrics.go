// Package metrics exposes Prometheus counters for trading activity and snapshot persistence.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trade outcomes
const (
	OutcomeExecuted = "executed"
	OutcomeRejected = "rejected"
)

// Save outcomes
const (
	SaveOK     = "ok"
	SaveFailed = "failed"
)

// Metrics holds all Prometheus metrics for papertrade.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Trades   *prometheus.CounterVec
	Saves    *prometheus.CounterVec
	Users    prometheus.Gauge
	registry *prometheus.Registry
}

// New creates the metrics and registers them on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrade_trades_total",
				Help: "Buy and sell requests by side and outcome",
			},
			[]string{"side", "outcome"},
		),
		Saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrade_snapshot_saves_total",
				Help: "Snapshot saves by result",
			},
			[]string{"result"},
		),
		Users: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "papertrade_users",
				Help: "Number of users in the directory",
			},
		),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Trades, m.Saves, m.Users)
	return m
}

// ObserveTrade counts one buy or sell request
func (m *Metrics) ObserveTrade(side string, executed bool) {
	if m == nil {
		return
	}
	outcome := OutcomeRejected
	if executed {
		outcome = OutcomeExecuted
	}
	m.Trades.WithLabelValues(side, outcome).Inc()
}

// ObserveSave counts one snapshot save
func (m *Metrics) ObserveSave(err error) {
	if m == nil {
		return
	}
	result := SaveOK
	if err != nil {
		result = SaveFailed
	}
	m.Saves.WithLabelValues(result).Inc()
}

// SetUsers records the directory size
func (m *Metrics) SetUsers(n int) {
	if m == nil {
		return
	}
	m.Users.Set(float64(n))
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
