package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StableMetrics tracks the engine's operation outcomes for dashboards and
// alerting.
type StableMetrics struct {
	operations   *prometheus.CounterVec
	liquidations prometheus.Counter
	rejections   *prometheus.CounterVec
}

var (
	stableOnce     sync.Once
	stableRegistry *StableMetrics
)

// Stable returns the process-wide engine metrics, registering them on first
// use.
func Stable() *StableMetrics {
	stableOnce.Do(func() {
		stableRegistry = &StableMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stable_operations_total",
				Help: "Count of engine operations by type and result.",
			}, []string{"operation", "result"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stable_liquidations_total",
				Help: "Count of successful liquidations.",
			}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stable_rejections_total",
				Help: "Count of operations rejected by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			stableRegistry.operations,
			stableRegistry.liquidations,
			stableRegistry.rejections,
		)
	})
	return stableRegistry
}

// ObserveOperation records the outcome of one engine operation.
func (m *StableMetrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

// ObserveLiquidation records a successful liquidation.
func (m *StableMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// ObserveRejection records a rejected operation by reason label.
func (m *StableMetrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}
