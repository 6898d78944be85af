package slots

import "testing"

func TestMergeNonBlankWins(t *testing.T) {
	existing := Set{Intent: IntentBooking, Date: "2026-03-20", Timezone: "UTC"}
	incoming := Set{Date: "2026-03-21", Time: "15:00", Timezone: "  "}

	merged := Merge(existing, incoming)

	if merged.Date != "2026-03-21" {
		t.Errorf("Date = %q, want incoming to win", merged.Date)
	}
	if merged.Time != "15:00" {
		t.Errorf("Time = %q, want 15:00", merged.Time)
	}
	if merged.Timezone != "UTC" {
		t.Errorf("Timezone = %q, blank incoming must not clobber", merged.Timezone)
	}
	if merged.Intent != IntentBooking {
		t.Errorf("Intent = %q, absent incoming must not clobber", merged.Intent)
	}
	// Inputs are untouched.
	if existing.Date != "2026-03-20" || incoming.Timezone != "  " {
		t.Error("Merge mutated its arguments")
	}
}

func TestMergeDeterministicLastAlwaysWins(t *testing.T) {
	prior := Set{Date: "2026-01-01", Time: "09:00", ServiceType: "demo"}
	llm := Set{Date: "2026-02-02", Time: "10:00", Timezone: "Europe/London"}
	deterministic := Set{Date: "2026-03-03", Timezone: "America/New_York"}

	merged := Merge(Merge(prior, llm), deterministic)

	if merged.Date != deterministic.Date {
		t.Errorf("Date = %q, want deterministic value", merged.Date)
	}
	if merged.Timezone != deterministic.Timezone {
		t.Errorf("Timezone = %q, want deterministic value", merged.Timezone)
	}
	// Fields deterministic left empty fall back to the LLM layer, then prior.
	if merged.Time != "10:00" {
		t.Errorf("Time = %q, want llm value", merged.Time)
	}
	if merged.ServiceType != "demo" {
		t.Errorf("ServiceType = %q, want prior value", merged.ServiceType)
	}
}

func TestClearBooking(t *testing.T) {
	s := Set{
		Intent: IntentBooking, Date: "2026-03-20", Time: "15:00",
		Timezone: "UTC", ServiceType: "consultation", AppointmentID: "abc",
	}
	if cleared := s.ClearBooking(); cleared != (Set{}) {
		t.Errorf("ClearBooking left %+v", cleared)
	}
}

func TestEffectiveServiceType(t *testing.T) {
	if got := (Set{}).EffectiveServiceType(); got != DefaultServiceType {
		t.Errorf("got %q, want default", got)
	}
	if got := (Set{ServiceType: " consultation "}).EffectiveServiceType(); got != "consultation" {
		t.Errorf("got %q, want trimmed value", got)
	}
}
