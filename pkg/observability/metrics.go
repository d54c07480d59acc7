package observability

import (
	"context"

	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records session events as Prometheus metrics.
type Metrics struct {
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	retries     prometheus.Counter
	retryDelay  prometheus.Histogram
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// It panics if they are already registered, like prometheus.MustRegister.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kvsession",
			Name:      "state",
			Help:      "Current session state (1 for the active state).",
		}, []string{"session_id", "state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvsession",
			Name:      "state_transitions_total",
			Help:      "Total lifecycle transitions.",
		}, []string{"from", "to"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvsession",
			Name:      "retries_total",
			Help:      "Total connection retries scheduled.",
		}),
		retryDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kvsession",
			Name:      "retry_delay_seconds",
			Help:      "Delay before each scheduled retry.",
			Buckets:   []float64{.01, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvsession",
			Name:      "operations_total",
			Help:      "Total data operations by result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kvsession",
			Name:      "operation_duration_seconds",
			Help:      "Data operation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.state, m.transitions, m.retries, m.retryDelay, m.operations, m.duration)
	return m
}

// Hooks returns the lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) {
			for _, s := range domain.AllStates() {
				value := 0.0
				if s == e.To {
					value = 1
				}
				m.state.WithLabelValues(e.SessionID, string(s)).Set(value)
			}
			m.transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnRetry: func(_ context.Context, e *domain.RetryEvent) {
			m.retries.Inc()
			m.retryDelay.Observe(e.Delay.Seconds())
		},
		OnOperation: func(_ context.Context, e *domain.OperationEvent) {
			m.operations.WithLabelValues(e.Op, result(e.Err)).Inc()
			m.duration.WithLabelValues(e.Op).Observe(e.Duration.Seconds())
		},
	}
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
