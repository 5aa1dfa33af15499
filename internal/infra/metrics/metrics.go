package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by terminal status (pending/success/failed).",
		},
		[]string{"status"},
	)

	stkPushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stk_push_requests_total",
			Help: "STK push requests by outcome (accepted/declined/error/duplicate).",
		},
		[]string{"outcome"},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Payment provider callbacks by outcome (success/failed/duplicate/unknown/malformed).",
		},
		[]string{"outcome"},
	)

	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_activations_total",
			Help: "Session activations by outcome (granted/grant_failed/window_expired).",
		},
		[]string{"outcome"},
	)

	routerOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_ops_total",
			Help: "Router control-plane operations by op and success.",
		},
		[]string{"op", "success"},
	)

	routerOpLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_op_latency_ms",
			Help:    "Router operation latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"op"},
	)

	syncPackagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_packages_total",
			Help: "Per-package sync outcomes across all sync batches.",
		},
		[]string{"outcome"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			paymentsTotal, stkPushTotal, callbacksTotal,
			activationsTotal, routerOpsTotal, routerOpLatencyMs,
			syncPackagesTotal,
		)
	})
}

func IncPayment(status string)     { paymentsTotal.WithLabelValues(status).Inc() }
func IncStkPush(outcome string)    { stkPushTotal.WithLabelValues(outcome).Inc() }
func IncCallback(outcome string)   { callbacksTotal.WithLabelValues(outcome).Inc() }
func IncActivation(outcome string) { activationsTotal.WithLabelValues(outcome).Inc() }

func ObserveRouterOp(op string, success bool, elapsed time.Duration) {
	routerOpsTotal.WithLabelValues(op, strconv.FormatBool(success)).Inc()
	routerOpLatencyMs.WithLabelValues(op).Observe(float64(elapsed.Milliseconds()))
}

func IncSyncPackage(outcome string) { syncPackagesTotal.WithLabelValues(outcome).Inc() }
