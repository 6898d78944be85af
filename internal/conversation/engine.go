package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clearbook/booking-assistant/internal/appointments"
	"github.com/clearbook/booking-assistant/internal/intent"
	"github.com/clearbook/booking-assistant/internal/observability/metrics"
	"github.com/clearbook/booking-assistant/internal/sessions"
	"github.com/clearbook/booking-assistant/internal/slots"
	"github.com/clearbook/booking-assistant/internal/temporal"
	"github.com/clearbook/booking-assistant/pkg/logging"
)

var engineTracer = otel.Tracer("clearbook.internal.conversation")

const displayLayout = "2006-01-02 15:04"

// alternativeLimit caps how many replacement slots a conflict reply offers.
const alternativeLimit = 2

// AppointmentStore is the storage collaborator the engine books against.
// Implemented by appointments.Repository.
type AppointmentStore interface {
	IsSlotTaken(ctx context.Context, startUTC time.Time) (bool, error)
	Create(ctx context.Context, userID uuid.UUID, startUTC, endUTC time.Time, serviceType string) (uuid.UUID, error)
	LatestBooked(ctx context.Context, userID uuid.UUID) (*appointments.Appointment, error)
	CancelLatestBooked(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
}

// Result is everything one turn produces.
type Result struct {
	Reply         string
	Action        Action
	Messages      []sessions.Message
	Meta          sessions.Metadata
	AppointmentID *uuid.UUID
	Slots         slots.Set
}

// Options tune the engine's use of the optional assistant.
type Options struct {
	AssistantTimeout time.Duration
	AssistantRetries int
}

// Engine drives one conversation turn: deterministic parsing, best-effort
// LLM extraction, slot merging, the booking state machine, and reply
// composition with deterministic fallbacks.
type Engine struct {
	store     AppointmentStore
	assistant Assistant
	logger    *logging.Logger
	metrics   *metrics.ConversationMetrics
	timeout   time.Duration
	retries   int
}

// NewEngine constructs an engine. A nil assistant means disabled; metrics
// may be nil.
func NewEngine(store AppointmentStore, assistant Assistant, logger *logging.Logger, m *metrics.ConversationMetrics, opts Options) *Engine {
	if store == nil {
		panic("conversation: appointment store required")
	}
	if assistant == nil {
		assistant = NoopAssistant{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	timeout := opts.AssistantTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	retries := opts.AssistantRetries
	if retries < 0 {
		retries = 0
	}
	return &Engine{
		store:     store,
		assistant: assistant,
		logger:    logger,
		metrics:   m,
		timeout:   timeout,
		retries:   retries,
	}
}

// HandleTurn processes one user message against the session's prior slots
// and state. Parse ambiguity always degrades to a clarifying reply; only
// storage failures propagate as errors.
func (e *Engine) HandleTurn(ctx context.Context, sess *sessions.Session, message string, now time.Time) (*Result, error) {
	ctx, span := engineTracer.Start(ctx, "conversation.turn")
	defer span.End()
	span.SetAttributes(attribute.String("clearbook.session_id", sess.ID.String()))
	started := time.Now()

	now = now.UTC()
	prior := sess.Meta.Slots
	priorState := sess.Meta.State

	deterministic := slots.Set{
		Date:        temporal.ParseDate(message, now),
		Time:        temporal.ParseClock(message),
		Timezone:    temporal.ParseTimezone(message),
		ServiceType: intent.ServiceType(message),
	}
	extracted := e.extractSlots(ctx, message, prior)

	// Whether this message itself supplied a value, from either source.
	// Only the reschedule branch cares.
	providedTime := deterministic.Time != "" || extracted.Time != ""
	providedTimezone := deterministic.Timezone != "" || extracted.Timezone != ""

	// Deterministic parsing is merged last so it wins over LLM guesses.
	merged := slots.Merge(slots.Merge(prior, extracted), deterministic)

	log := make([]sessions.Message, 0, len(sess.Messages)+2)
	log = append(log, sess.Messages...)
	log = append(log, sessions.Message{Role: "user", Content: message, TS: now})

	finish := func(reply string, action Action, state sessions.State, set slots.Set, apptID *uuid.UUID) *Result {
		log = append(log, sessions.Message{Role: "assistant", Content: reply, TS: now})
		span.SetAttributes(attribute.String("clearbook.action", string(action)))
		e.metrics.ObserveTurn(string(action), time.Since(started).Seconds())
		return &Result{
			Reply:         reply,
			Action:        action,
			Messages:      log,
			Meta:          sessions.Metadata{Slots: set, State: state},
			AppointmentID: apptID,
			Slots:         set,
		}
	}

	// Explicit cancellation short-circuits everything else.
	if intent.IsCancel(message) {
		merged = merged.ClearBooking()
		reply := e.compose(ctx, log, ActionCancelled, nil, fallbackCancelled)
		return finish(reply, ActionCancelled, sessions.StateNone, merged, nil), nil
	}

	if merged.ServiceType == "" {
		merged.ServiceType = slots.DefaultServiceType
	}

	merged.Intent = resolveIntent(message, prior, priorState, merged.Intent)

	// An unknown timezone is dropped, not an error; resolution later
	// defaults to UTC.
	if merged.Timezone != "" && !temporal.ValidTimezone(merged.Timezone) {
		merged.Timezone = ""
	}

	// Session already holds a booking and the user is not re-engaging.
	if priorState == sessions.StateBooked &&
		merged.Intent != slots.IntentReschedule && merged.Intent != slots.IntentBooking &&
		!intent.IsViewBooking(message) {
		reply := e.compose(ctx, log, ActionBooked, map[string]any{"already_booked": true}, fallbackAlreadyBooked)
		return finish(reply, ActionAlreadyBooked, sessions.StateBooked, merged, nil), nil
	}

	if intent.IsViewBooking(message) {
		latest, err := e.store.LatestBooked(ctx, sess.UserID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: view booking lookup: %w", err)
		}
		var reply string
		if latest == nil {
			reply = e.compose(ctx, log, ActionViewBooking, map[string]any{"has_booking": false}, fallbackNoBooking)
		} else {
			startUTC := latest.StartTime.UTC().Format(displayLayout)
			payload := map[string]any{
				"has_booking":    true,
				"start_time_utc": startUTC,
				"service_type":   latest.ServiceType,
			}
			reply = e.compose(ctx, log, ActionViewBooking, payload, fallbackViewBooking(startUTC, latest.ServiceType))
		}
		return finish(reply, ActionViewBooking, priorState, merged, nil), nil
	}

	// Rescheduling keeps a remembered date but forces the user to restate
	// time and timezone unless this message already supplied them.
	reschedule := merged.Intent == slots.IntentReschedule
	if reschedule {
		merged.AppointmentID = ""
		priorState = sessions.StateNone
		if !providedTime {
			merged.Time = ""
		}
		if !providedTimezone {
			merged.Timezone = ""
		}
		merged.Intent = slots.IntentBooking
	}

	if merged.Intent != slots.IntentBooking {
		payload := map[string]any{
			"user_message": message,
			"capabilities": []string{"book", "reschedule", "cancel", "view_booking"},
			"note":         "If user message is unrelated, answer briefly then ask what date/time they'd like to book.",
		}
		reply := e.compose(ctx, log, ActionGeneralChat, payload, generalChatReply(message))
		return finish(reply, ActionGeneralChat, priorState, merged, nil), nil
	}

	if !merged.HasDate() {
		reply := e.compose(ctx, log, ActionAskDate, nil, fallbackAskDate)
		return finish(reply, ActionAskDate, sessions.StateCollecting, merged, nil), nil
	}
	if !merged.HasTime() {
		reply := e.compose(ctx, log, ActionAskTime, nil, fallbackAskTime)
		return finish(reply, ActionAskTime, sessions.StateCollecting, merged, nil), nil
	}

	localStart, zone, err := temporal.ResolveLocalStart(merged.Date, merged.Time, merged.Timezone)
	if err != nil {
		reply := e.compose(ctx, log, ActionInvalidDatetime, nil, fallbackInvalid)
		return finish(reply, ActionInvalidDatetime, sessions.StateCollecting, merged, nil), nil
	}
	startUTC := localStart.UTC()

	if !temporal.WithinBusinessRules(startUTC) {
		reply := e.compose(ctx, log, ActionOutsideRules, nil, fallbackOutside)
		return finish(reply, ActionOutsideRules, sessions.StateCollecting, merged, nil), nil
	}

	taken, err := e.store.IsSlotTaken(ctx, startUTC)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: slot check: %w", err)
	}
	if taken {
		result, err := e.conflictReply(ctx, log, startUTC, zone, merged, finish)
		return result, err
	}

	endUTC := startUTC.Add(temporal.SlotDuration)
	serviceType := merged.EffectiveServiceType()

	if reschedule {
		if _, err := e.store.CancelLatestBooked(ctx, sess.UserID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: cancel prior booking: %w", err)
		}
	}

	apptID, err := e.store.Create(ctx, sess.UserID, startUTC, endUTC, serviceType)
	if err != nil {
		// A uniqueness race on insert is the conflict case, not a fault.
		if errors.Is(err, appointments.ErrAlreadyBooked) {
			result, cerr := e.conflictReply(ctx, log, startUTC, zone, merged, finish)
			return result, cerr
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: create appointment: %w", err)
	}

	merged.AppointmentID = apptID.String()
	localDisplay := localStart.Format(displayLayout)
	payload := map[string]any{
		"local_start":  localDisplay,
		"timezone":     zone,
		"service_type": serviceType,
	}
	reply := e.compose(ctx, log, ActionBooked, payload, fallbackBooked(localDisplay, zone, serviceType))
	e.metrics.ObserveBooked()
	e.logger.Info("appointment booked",
		"session_id", sess.ID,
		"user_id", sess.UserID,
		"appointment_id", apptID,
		"start_utc", startUTC,
		"service_type", serviceType,
	)
	return finish(reply, ActionBooked, sessions.StateBooked, merged, &apptID), nil
}

func (e *Engine) conflictReply(
	ctx context.Context,
	log []sessions.Message,
	startUTC time.Time,
	zone string,
	merged slots.Set,
	finish func(string, Action, sessions.State, slots.Set, *uuid.UUID) *Result,
) (*Result, error) {
	alternatives, err := temporal.FindAlternatives(ctx, e.store.IsSlotTaken, startUTC, zone, alternativeLimit)
	if err != nil {
		return nil, fmt.Errorf("conversation: alternative search: %w", err)
	}
	formatted := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		formatted = append(formatted, alt.Format(displayLayout))
	}
	payload := map[string]any{"timezone": zone, "alternatives": formatted}
	reply := e.compose(ctx, log, ActionConflict, payload, fallbackConflict(formatted, zone))
	return finish(reply, ActionConflict, sessions.StateCollecting, merged, nil), nil
}

// resolveIntent applies the intent precedence: explicit reschedule
// keywording first, then the sticky mid-booking rule so an ambiguous
// follow-up cannot derail an in-progress booking, then the keyword
// heuristic, then whatever is already merged, defaulting to inquiry.
func resolveIntent(message string, prior slots.Set, priorState sessions.State, current string) string {
	if intent.IsReschedule(message) {
		return slots.IntentReschedule
	}
	resolved := current
	if (prior.Intent == slots.IntentBooking || priorState == sessions.StateCollecting) &&
		(resolved == "" || resolved == slots.IntentInquiry) {
		resolved = slots.IntentBooking
	}
	if intent.Classify(message) == intent.Booking {
		return slots.IntentBooking
	}
	if resolved == "" {
		return intent.Classify(message).String()
	}
	return resolved
}

// extractSlots asks the assistant for a liberal reading of the message.
// Failures are logged and swallowed; the deterministic parse still wins.
func (e *Engine) extractSlots(ctx context.Context, message string, existing slots.Set) slots.Set {
	if _, ok := e.assistant.(NoopAssistant); ok {
		return slots.Set{}
	}

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		extracted, err := e.assistant.ExtractSlots(callCtx, message, existing)
		cancel()
		if err == nil {
			return sanitizeExtracted(extracted)
		}
		lastErr = err
	}
	e.logger.Warn("slot extraction failed, using deterministic parse only", "error", lastErr)
	e.metrics.ObserveAssistantFallback("extract_slots", fallbackReason(lastErr))
	return slots.Set{}
}

// compose asks the assistant to write the reply for the decided action and
// falls back to deterministic text on error, timeout, or empty output.
func (e *Engine) compose(ctx context.Context, history []sessions.Message, action Action, payload map[string]any, fallback string) string {
	if _, ok := e.assistant.(NoopAssistant); ok {
		return fallback
	}

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		text, err := e.assistant.ComposeReply(callCtx, history, action, payload)
		cancel()
		if err == nil {
			if text != "" {
				return text
			}
			e.metrics.ObserveAssistantFallback("compose_reply", "empty")
			return fallback
		}
		lastErr = err
	}
	e.logger.Warn("reply composition failed, using deterministic fallback",
		"action", action,
		"error", lastErr,
	)
	e.metrics.ObserveAssistantFallback("compose_reply", fallbackReason(lastErr))
	return fallback
}

// sanitizeExtracted drops an assistant intent outside the closed set. An
// unvalidated timezone is left in place on purpose: it counts as "provided"
// for reschedule handling and is dropped from the merged slots later.
func sanitizeExtracted(s slots.Set) slots.Set {
	switch s.Intent {
	case slots.IntentBooking, slots.IntentInquiry, slots.IntentReschedule, "":
	default:
		s.Intent = ""
	}
	return s
}

func fallbackReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
