// Package conversation implements the chat engine for the scheduling
// assistant: one inbound message plus the session's prior slots and state
// produce a reply, an updated transcript, updated metadata, and possibly a
// booked appointment.
package conversation

import (
	"context"

	"github.com/clearbook/booking-assistant/internal/sessions"
	"github.com/clearbook/booking-assistant/internal/slots"
)

// Action names the reply the engine decided on. The engine owns the
// business logic; the assistant only writes the user-facing text for it.
type Action string

const (
	ActionAskDate         Action = "ask_date"
	ActionAskTime         Action = "ask_time"
	ActionBooked          Action = "booked"
	ActionConflict        Action = "conflict"
	ActionCancelled       Action = "cancelled"
	ActionViewBooking     Action = "view_booking"
	ActionInvalidDatetime Action = "invalid_datetime"
	ActionOutsideRules    Action = "outside_rules"
	ActionGeneralChat     Action = "general_chat"
	ActionAlreadyBooked   Action = "already_booked"
)

// Assistant is the optional LLM collaborator. Both methods are best-effort:
// an implementation may return empty output or an error and the engine will
// fall back to its deterministic behavior. Implementations must never be
// required for correctness.
type Assistant interface {
	// ExtractSlots reads booking slots from one user message. Any subset
	// of fields may be returned; unknown fields stay empty.
	ExtractSlots(ctx context.Context, message string, existing slots.Set) (slots.Set, error)
	// ComposeReply writes the assistant reply for the decided action given
	// the transcript so far and an action-specific context payload.
	ComposeReply(ctx context.Context, history []sessions.Message, action Action, payload map[string]any) (string, error)
}

// NoopAssistant is the disabled collaborator: it extracts nothing and
// composes nothing, leaving every turn to the deterministic engine. It is
// the implementation of record when no provider key is configured and in
// tests.
type NoopAssistant struct{}

func (NoopAssistant) ExtractSlots(ctx context.Context, message string, existing slots.Set) (slots.Set, error) {
	return slots.Set{}, nil
}

func (NoopAssistant) ComposeReply(ctx context.Context, history []sessions.Message, action Action, payload map[string]any) (string, error) {
	return "", nil
}
