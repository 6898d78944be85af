package conversation

import (
	"fmt"
	"strings"
)

// Deterministic fallback text, one string per action tag. These are the
// replies of record whenever the assistant is disabled, errors, times out,
// or returns nothing.
const (
	fallbackCancelled = "Okay — cancelled. If you want to book, tell me the date, time, and timezone."
	fallbackAskDate   = "What date would you like to book? (e.g. 2026-02-24 or 'next Tuesday')"
	fallbackAskTime   = "What time works for you? (e.g. 3pm or 15:00)"
	fallbackInvalid   = "I couldn't parse that date/time. Please share date + time again (e.g. 2026-02-24 15:00 America/New_York)."
	fallbackOutside   = "That time isn't available. Please choose a weekday, on the hour, between 09:00 and 17:00 UTC."
	fallbackNoAlts    = "That slot is already booked. Please suggest another time."
	fallbackNoBooking = "You don't have any booked appointments yet. If you'd like to book one, tell me the day, time, and timezone."

	fallbackAlreadyBooked = "Your appointment is already booked for this session. If you want to reschedule, tell me the new time (and timezone if different)."
)

func fallbackConflict(alternatives []string, timezone string) string {
	if len(alternatives) == 0 {
		return fallbackNoAlts
	}
	return fmt.Sprintf("That slot is already booked. How about %s (%s)?", strings.Join(alternatives, " or "), timezone)
}

func fallbackBooked(localStart, timezone, serviceType string) string {
	return fmt.Sprintf("Booked — %s %s (type: %s).", localStart, timezone, serviceType)
}

func fallbackViewBooking(startUTC, serviceType string) string {
	return fmt.Sprintf("Your latest appointment is booked for %s UTC (type: %s).", startUTC, serviceType)
}

// generalChatReply answers off-topic messages without the assistant,
// steering back toward booking.
func generalChatReply(message string) string {
	msg := strings.ToLower(strings.TrimSpace(message))

	for _, greeting := range []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"} {
		if strings.Contains(msg, greeting) {
			return "Hi! I can help you book or reschedule an appointment. What date and time would you like?"
		}
	}

	if strings.Contains(msg, "space") && (strings.Contains(msg, "fact") || strings.Contains(msg, "fun")) {
		return "Fun space fact: a day on Venus is longer than a year on Venus. " +
			"If you'd like to book an appointment, tell me the date and time you prefer."
	}

	if strings.Contains(msg, "thank") {
		return "You're welcome. If you want to book an appointment, what date and time works for you?"
	}

	return "I can help with appointment bookings. What date and time would you like?"
}
