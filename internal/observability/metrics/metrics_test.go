package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConversationMetricsRegisterAndObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)

	m.ObserveTurn("booked", 0.12)
	m.ObserveAssistantFallback("compose_reply", "timeout")
	m.ObserveBooked()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := map[string]bool{}
	for _, fam := range families {
		seen[fam.GetName()] = true
	}
	for _, name := range []string{
		"clearbook_conversation_turns_total",
		"clearbook_conversation_assistant_fallback_total",
		"clearbook_conversation_appointments_booked_total",
		"clearbook_conversation_turn_latency_seconds",
	} {
		if !seen[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveTurn("booked", 0)
	m.ObserveAssistantFallback("extract_slots", "error")
	m.ObserveBooked()
}
