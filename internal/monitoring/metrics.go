package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cycle metrics
	cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signal_bot_cycles_total",
			Help: "Total number of completed decision cycles",
		},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_bot_cycle_duration_seconds",
			Help:    "Wall time of a decision cycle",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// Market data metrics
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_fetch_total",
			Help: "Candle fetches by interval and outcome",
		},
		[]string{"interval", "outcome"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_bot_fetch_duration_seconds",
			Help:    "Latency of candle fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"interval"},
	)

	// Strategy metrics
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_signals_total",
			Help: "Signals fired by strategy and direction",
		},
		[]string{"strategy", "direction"},
	)

	// Position metrics
	positionsOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_positions_opened_total",
			Help: "Positions opened by strategy and direction",
		},
		[]string{"strategy", "direction"},
	)

	positionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_positions_closed_total",
			Help: "Positions closed by reason",
		},
		[]string{"reason"},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_bot_open_positions",
			Help: "Number of currently open positions",
		},
	)

	realizedPnL = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_realized_pnl_usd_total",
			Help: "Realized profit and loss split by sign",
		},
		[]string{"sign"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal)
	prometheus.MustRegister(cycleDuration)
	prometheus.MustRegister(fetchTotal)
	prometheus.MustRegister(fetchDuration)
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(positionsOpenedTotal)
	prometheus.MustRegister(positionsClosedTotal)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(realizedPnL)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordCycle records a finished cycle
func RecordCycle(d time.Duration) {
	cyclesTotal.Inc()
	cycleDuration.Observe(d.Seconds())
}

// RecordFetch records the outcome of one candle request
func RecordFetch(interval string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	fetchTotal.WithLabelValues(interval, outcome).Inc()
	fetchDuration.WithLabelValues(interval).Observe(d.Seconds())
}

// RecordSignal records a fired strategy signal
func RecordSignal(strategy, direction string) {
	signalsTotal.WithLabelValues(strategy, direction).Inc()
}

// RecordOpen records an opened position
func RecordOpen(strategy, direction string) {
	positionsOpenedTotal.WithLabelValues(strategy, direction).Inc()
}

// RecordClose records a closed position and its realized result
func RecordClose(reason string, pnl float64) {
	positionsClosedTotal.WithLabelValues(reason).Inc()
	if pnl >= 0 {
		realizedPnL.WithLabelValues("profit").Add(pnl)
	} else {
		realizedPnL.WithLabelValues("loss").Add(-pnl)
	}
}

// SetOpenPositions updates the open position gauge
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
