// Package sessions stores chat sessions: the ordered message log plus the
// slot/state metadata the conversation engine reads and writes each turn.
package sessions

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clearbook/booking-assistant/internal/slots"
)

// Contract failures. These are the only session conditions that propagate
// as hard errors to the transport layer.
var (
	ErrUnknownUser      = errors.New("sessions: unknown user")
	ErrSessionOwnership = errors.New("sessions: session does not belong to user")
	ErrSessionNotFound  = errors.New("sessions: session not found")
)

// State is the conversation lifecycle marker. The zero value means no
// active flow.
type State string

const (
	StateNone       State = ""
	StateCollecting State = "COLLECTING"
	StateBooked     State = "BOOKED"
)

// Message is one entry in the session transcript.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// Metadata carries the engine state persisted between turns.
type Metadata struct {
	Slots slots.Set `json:"slots"`
	State State     `json:"state,omitempty"`
}

// Session is a chat session owned by one user.
type Session struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Messages []Message
	Meta     Metadata
}
