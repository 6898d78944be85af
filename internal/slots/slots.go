// Package slots models the booking information collected across a
// conversation. A slot value is never blank: emptiness is represented by an
// omitted field, and each turn produces a new merged set.
package slots

import "strings"

// Intent values carried in a slot set.
const (
	IntentBooking    = "booking"
	IntentInquiry    = "inquiry"
	IntentReschedule = "reschedule"
)

// DefaultServiceType is assumed when the user never names a service.
const DefaultServiceType = "general"

// Set is the full mapping of currently known slots for a session.
type Set struct {
	Intent        string `json:"intent,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	ServiceType   string `json:"service_type,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

// Merge overlays incoming onto existing: a field is overwritten only when the
// incoming value is non-blank after trimming. Merge is not commutative; the
// caller must merge deterministic-parser output last so it wins over any
// LLM-extracted guesses.
func Merge(existing, incoming Set) Set {
	merged := existing
	assign(&merged.Intent, incoming.Intent)
	assign(&merged.Date, incoming.Date)
	assign(&merged.Time, incoming.Time)
	assign(&merged.Timezone, incoming.Timezone)
	assign(&merged.ServiceType, incoming.ServiceType)
	assign(&merged.AppointmentID, incoming.AppointmentID)
	return merged
}

func assign(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

// ClearBooking removes everything tied to an active booking flow. Used when
// the user cancels.
func (s Set) ClearBooking() Set {
	s.Intent = ""
	s.Date = ""
	s.Time = ""
	s.Timezone = ""
	s.ServiceType = ""
	s.AppointmentID = ""
	return s
}

// HasDate reports whether a date slot is present.
func (s Set) HasDate() bool { return s.Date != "" }

// HasTime reports whether a time slot is present.
func (s Set) HasTime() bool { return s.Time != "" }

// EffectiveServiceType returns the service type slot, defaulting when absent.
func (s Set) EffectiveServiceType() string {
	if trimmed := strings.TrimSpace(s.ServiceType); trimmed != "" {
		return trimmed
	}
	return DefaultServiceType
}
