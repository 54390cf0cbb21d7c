package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

type Metrics struct {
	// Traffic: проверки размещения по исходу
	Checks *prometheus.CounterVec

	// Latency: время проверки (без доставки сообщения)
	CheckDuration prometheus.Histogram

	// Denials: по какому деплояблу чаще всего пытаются повесить табличку
	Denials *prometheus.CounterVec

	// Errors: сбои доставки сообщений и reload-ов
	ErrorTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker webhook-а (0 - closed, 1 - half-open, 2 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// Journal: заполненность буфера (backpressure)
	JournalBufferFill prometheus.Gauge

	// Rules: размер текущего списка целей
	BlockedTargets prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Checks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "nosigns_placement_checks_total",
			Help: "Total number of placement checks by decision.",
		}, []string{"decision"}),

		CheckDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "nosigns_placement_check_duration_seconds",
			Help:    "Histogram of placement check latencies.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),

		Denials: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "nosigns_denials_total",
			Help: "Denied sign placements by target.",
		}, []string{"target"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "nosigns_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: notify, reload, save

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "nosigns_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "nosigns_journal_buffer_utilization",
			Help: "Current number of events in denial journal buffer.",
		}),

		BlockedTargets: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "nosigns_blocked_targets",
			Help: "Number of deployable types signs cannot be placed on.",
		}),
	}
}

// OnBreakerStateChange — колбэк для gobreaker.Settings.OnStateChange.
func (m *Metrics) OnBreakerStateChange(name string, _, to gobreaker.State) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
}
