// Package metrics exposes Prometheus metrics for the trading loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Evaluation cycles by outcome",
		},
		[]string{"outcome"}, // ok|error|suppressed
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Confirmed orders by kind and side",
		},
		[]string{"kind", "side"}, // kind: open|close
	)

	OrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_order_failures_total",
			Help: "Failed order attempts by reason",
		},
		[]string{"reason"}, // rejected|unconfirmed|error
	)

	DriftHeals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_ledger_drift_heals_total",
			Help: "Ledger positions deleted because the exchange no longer reports them",
		},
	)

	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Open positions recorded in the ledger",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_cycle_duration_seconds",
			Help:    "Wall time of one evaluation cycle",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(Cycles, Orders, OrderFailures, DriftHeals, OpenPositions, CycleDuration)
}

// Serve starts the /metrics HTTP endpoint in a background goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = server.ListenAndServe()
	}()
}
