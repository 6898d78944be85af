package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for chat turns.
type ConversationMetrics struct {
	turnsTotal        *prometheus.CounterVec
	assistantFallback *prometheus.CounterVec
	appointmentsTotal prometheus.Counter
	turnLatency       prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearbook",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total chat turns by outcome action",
		}, []string{"action"}),
		assistantFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearbook",
			Subsystem: "conversation",
			Name:      "assistant_fallback_total",
			Help:      "Deterministic fallbacks taken when the LLM assistant failed or was disabled",
		}, []string{"op", "reason"}),
		appointmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clearbook",
			Subsystem: "conversation",
			Name:      "appointments_booked_total",
			Help:      "Appointments successfully created through chat",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clearbook",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one engine turn",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.assistantFallback, m.appointmentsTotal, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(action string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(action).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *ConversationMetrics) ObserveAssistantFallback(op, reason string) {
	if m == nil {
		return
	}
	m.assistantFallback.WithLabelValues(op, reason).Inc()
}

func (m *ConversationMetrics) ObserveBooked() {
	if m == nil {
		return
	}
	m.appointmentsTotal.Inc()
}
