// Package observability exposes ledger activity as Prometheus metrics.
//
// This provides:
//   - Mutation counters by operation and result
//   - Store save latency
//   - Gauges for the customer count and the aggregate totals
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/udhar-khata/khata/internal/domain"
)

// Result labels for mutation counters.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Metrics records ledger activity. It satisfies ledger.Recorder.
type Metrics struct {
	Mutations    *prometheus.CounterVec
	SaveSeconds  prometheus.Histogram
	Customers    prometheus.Gauge
	TotalDebt    prometheus.Gauge
	TotalPayment prometheus.Gauge
}

// NewMetrics registers the ledger metrics on reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "khata",
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Ledger mutations by operation and result.",
		}, []string{"op", "result"}),

		SaveSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "khata",
			Subsystem: "store",
			Name:      "save_seconds",
			Help:      "Time spent writing the full collection to the store.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		Customers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "khata",
			Subsystem: "ledger",
			Name:      "customers",
			Help:      "Number of customers in the ledger.",
		}),

		TotalDebt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "khata",
			Subsystem: "ledger",
			Name:      "total_debt",
			Help:      "Sum of all udhar amounts.",
		}),

		TotalPayment: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "khata",
			Subsystem: "ledger",
			Name:      "total_payment",
			Help:      "Sum of all vasuli amounts.",
		}),
	}
}

// ObserveMutation counts one mutation attempt.
func (m *Metrics) ObserveMutation(op string, err error) {
	m.Mutations.WithLabelValues(op, resultOf(err)).Inc()
}

// ObserveSave records the duration of one store write.
func (m *Metrics) ObserveSave(d time.Duration) {
	m.SaveSeconds.Observe(d.Seconds())
}

// ObserveState publishes the current collection size and totals.
func (m *Metrics) ObserveState(customers int, totals domain.Totals) {
	m.Customers.Set(float64(customers))
	m.TotalDebt.Set(totals.TotalDebt.InexactFloat64())
	m.TotalPayment.Set(totals.TotalPayment.InexactFloat64())
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidImport):
		return ResultInvalid
	default:
		return ResultError
	}
}
