// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes the metrics the strategies and dispatcher update while running:
//   • strategy_events_total{kind}                   – events routed by the dispatcher
//   • strategy_orders_total{strategy,side,type}     – orders accepted by the host
//   • strategy_entries_total{strategy,kind}         – gated entries (entry|pyramid|limit)
//   • strategy_fills_total                          – fills matched to a tracked order
//   • strategy_orders_completed_total               – orders that reached full size
//   • strategy_order_timeouts_total                 – cancels issued by the timeout sweep
//   • strategy_scheduler_actions_total{action}      – midday_report | eod_flatten
//   • strategy_imbalances_logged_total              – imbalances above the log threshold
//   • strategy_handler_faults_total{kind}           – recovered handler panics
//   • strategy_host_errors_total{op}                – host calls that returned an error
//
// These are registered in init() and served by the HTTP handler started in main.go
// at /metrics (Prometheus text exposition format).

package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_events_total",
			Help: "Events routed by the dispatcher",
		},
		[]string{"kind"},
	)

	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_orders_total",
			Help: "Orders placed",
		},
		[]string{"strategy", "side", "type"},
	)

	// kind: entry (first position), pyramid (one add-on), limit (resting order)
	mtxEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_entries_total",
			Help: "Gated entry decisions acted on",
		},
		[]string{"strategy", "kind"},
	)

	mtxFills = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strategy_fills_total",
			Help: "Fills matched to a tracked order",
		},
	)

	mtxOrdersCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strategy_orders_completed_total",
			Help: "Orders whose cumulative fills reached the requested size",
		},
	)

	mtxOrderTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strategy_order_timeouts_total",
			Help: "Cancels issued for orders older than the order timeout",
		},
	)

	mtxSchedulerActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_scheduler_actions_total",
			Help: "One-shot scheduler actions fired",
		},
		[]string{"action"},
	)

	mtxImbalancesLogged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strategy_imbalances_logged_total",
			Help: "Imbalances at or above the log threshold",
		},
	)

	mtxHandlerFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_handler_faults_total",
			Help: "Handler panics recovered by the dispatcher",
		},
		[]string{"kind"},
	)

	mtxHostErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_host_errors_total",
			Help: "Host calls that returned an error",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(mtxEvents, mtxOrders, mtxEntries)
	prometheus.MustRegister(mtxFills, mtxOrdersCompleted, mtxOrderTimeouts)
	prometheus.MustRegister(mtxSchedulerActions, mtxImbalancesLogged)
	prometheus.MustRegister(mtxHandlerFaults, mtxHostErrors)
}

func IncOrderPlaced(strategy string, side OrderSide, typ OrderType) {
	mtxOrders.WithLabelValues(strategy, string(side), string(typ)).Inc()
}

func IncEntry(strategy, kind string) { mtxEntries.WithLabelValues(strategy, kind).Inc() }
