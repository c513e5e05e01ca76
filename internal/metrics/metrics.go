// Package metrics exposes the bot's Prometheus instrumentation. Collectors are
// registered in init() and served by the HTTP handler started in main at
// /metrics (Prometheus text exposition format).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ordersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_placed_total",
			Help: "Limit orders placed",
		},
		[]string{"side"}, // BUY|SELL
	)

	ordersCanceled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_canceled_total",
			Help: "Open orders canceled and reconciled",
		},
		[]string{"side"},
	)

	linesConfirmed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_stop_lines_confirmed_total",
			Help: "Stop-line confirmations observed by the detector",
		},
		[]string{"side"}, // support|resistance
	)

	linesContradicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_stop_lines_contradicted_total",
			Help: "Stop-line contradictions observed by the detector",
		},
		[]string{"side"},
	)

	poolCash = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_pool_cash",
			Help: "Unallocated session cash pool",
		},
	)

	activeHoldings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_active_holdings",
			Help: "Securities currently held or being traded",
		},
	)

	sessionsFlattened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_sessions_flattened_total",
			Help: "Forced end-of-day flattens executed",
		},
	)
)

func init() {
	prometheus.MustRegister(ordersPlaced, ordersCanceled)
	prometheus.MustRegister(linesConfirmed, linesContradicted)
	prometheus.MustRegister(poolCash, activeHoldings, sessionsFlattened)
}

func IncOrderPlaced(side string)      { ordersPlaced.WithLabelValues(side).Inc() }
func IncOrderCanceled(side string)    { ordersCanceled.WithLabelValues(side).Inc() }
func IncLineConfirmed(side string)    { linesConfirmed.WithLabelValues(side).Inc() }
func IncLineContradicted(side string) { linesContradicted.WithLabelValues(side).Inc() }
func SetPoolCash(v float64)           { poolCash.Set(v) }
func SetActiveHoldings(n int)         { activeHoldings.Set(float64(n)) }
func IncSessionFlattened()            { sessionsFlattened.Inc() }
