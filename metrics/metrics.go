// Package metrics exposes the engine's operational counters in
// Prometheus text format:
//   - scalper_decisions_total{symbol,reason} – checklist verdicts by first failing reason
//   - scalper_orders_total{mode,side}        – orders placed (mode: sim|live)
//   - scalper_equity_usd                     – last seen account equity (gauge)
//   - scalper_risk_percent                   – adaptive per-trade risk currently in effect
//   - scalper_hard_stop                      – 1 while the daily hard stop is latched
//
// All collectors register in init() and are served by promhttp from the
// address configured under system.metrics_addr.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_decisions_total",
			Help: "Checklist verdicts by first failing reason",
		},
		[]string{"symbol", "reason"},
	)

	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_orders_total",
			Help: "Orders placed",
		},
		[]string{"mode", "side"},
	)

	equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_equity_usd",
			Help: "Account equity in USD",
		},
	)

	riskPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_risk_percent",
			Help: "Adaptive per-trade risk percent currently in effect",
		},
	)

	hardStop = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_hard_stop",
			Help: "1 while the daily loss hard stop is latched",
		},
	)
)

func init() {
	prometheus.MustRegister(decisions, orders, equity, riskPercent, hardStop)
}

func Decision(symbol, reason string) { decisions.WithLabelValues(symbol, reason).Inc() }
func Order(mode, side string)        { orders.WithLabelValues(mode, side).Inc() }
func Equity(v float64)               { equity.Set(v) }
func RiskPercent(v float64)          { riskPercent.Set(v) }

func HardStop(active bool) {
	if active {
		hardStop.Set(1)
	} else {
		hardStop.Set(0)
	}
}

// Handler serves the default registry; mount it at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
