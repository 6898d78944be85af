// Package intent classifies a single user message with small keyword
// predicates over normalized text. The heuristics are deliberately literal;
// anything fuzzier belongs to the optional LLM extraction, which this
// package backstops.
package intent

import "strings"

// Intent is the closed classification of a message.
type Intent int

const (
	Unknown Intent = iota
	Inquiry
	Booking
	Reschedule
)

func (i Intent) String() string {
	switch i {
	case Inquiry:
		return "inquiry"
	case Booking:
		return "booking"
	case Reschedule:
		return "reschedule"
	default:
		return "unknown"
	}
}

var (
	rescheduleKeywords = []string{"reschedule", "move", "change time", "change the time", "different time"}
	bookingKeywords    = []string{"book", "schedule", "appointment", "meeting", "reserve"}
	cancelKeywords     = []string{"cancel", "never mind", "nevermind", "forget it", "stop"}
	viewKeywords       = []string{"what did i book", "what have i booked", "my booking", "my appointment"}
)

func normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

func containsAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// Classify infers the intent of one message from keywords alone.
func Classify(message string) Intent {
	msg := normalize(message)
	if containsAny(msg, rescheduleKeywords) {
		return Reschedule
	}
	if containsAny(msg, bookingKeywords) {
		return Booking
	}
	return Inquiry
}

// IsCancel reports an explicit cancellation.
func IsCancel(message string) bool {
	return containsAny(normalize(message), cancelKeywords)
}

// IsReschedule reports explicit reschedule keywording.
func IsReschedule(message string) bool {
	return containsAny(normalize(message), rescheduleKeywords)
}

// IsViewBooking reports a request to see an existing booking.
func IsViewBooking(message string) bool {
	msg := normalize(message)
	if containsAny(msg, viewKeywords) {
		return true
	}
	return strings.Contains(msg, "what") && strings.Contains(msg, "book")
}

// ServiceType extracts a service-type keyword from the message, normalizing
// the softer synonyms to "consultation". Returns "" when nothing matches.
func ServiceType(message string) string {
	msg := normalize(message)
	for _, candidate := range []string{"consultation", "demo", "intro", "introduction", "call", "meeting", "check-in", "sync"} {
		if !strings.Contains(msg, candidate) {
			continue
		}
		switch candidate {
		case "intro", "introduction", "check-in", "sync":
			return "consultation"
		default:
			return candidate
		}
	}
	return ""
}
