package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clearbook/booking-assistant/internal/conversation"
	"github.com/clearbook/booking-assistant/internal/sessions"
	"github.com/clearbook/booking-assistant/internal/slots"
	"github.com/clearbook/booking-assistant/pkg/logging"
)

// SessionStore is the persistence surface the chat handler needs.
// Implemented by sessions.Repository.
type SessionStore interface {
	Ensure(ctx context.Context, userID, sessionID uuid.UUID) (*sessions.Session, error)
	Save(ctx context.Context, sessionID uuid.UUID, messages []sessions.Message, meta sessions.Metadata) error
	Load(ctx context.Context, sessionID uuid.UUID) (*sessions.Session, error)
}

// TurnEngine runs one conversation turn. Implemented by conversation.Engine.
type TurnEngine interface {
	HandleTurn(ctx context.Context, sess *sessions.Session, message string, now time.Time) (*conversation.Result, error)
}

// HistoryStore is the optional read-through transcript cache.
// Implemented by conversation.HistoryCache.
type HistoryStore interface {
	Save(ctx context.Context, sessionID uuid.UUID, messages []sessions.Message) error
	Load(ctx context.Context, sessionID uuid.UUID) ([]sessions.Message, error)
}

// ChatHandler serves the conversational booking endpoints.
type ChatHandler struct {
	sessions SessionStore
	engine   TurnEngine
	history  HistoryStore
	logger   *logging.Logger
	now      func() time.Time
}

// NewChatHandler wires the chat endpoints. history may be nil to disable
// the transcript cache.
func NewChatHandler(store SessionStore, engine TurnEngine, history HistoryStore, logger *logging.Logger) *ChatHandler {
	if store == nil {
		panic("handlers: session store required")
	}
	if engine == nil {
		panic("handlers: turn engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{
		sessions: store,
		engine:   engine,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is returned for every processed turn.
type ChatResponse struct {
	Reply          string    `json:"reply"`
	SessionID      string    `json:"session_id"`
	Action         string    `json:"action"`
	State          string    `json:"state,omitempty"`
	AppointmentID  string    `json:"appointment_id,omitempty"`
	ExtractedSlots slots.Set `json:"extracted_slots"`
}

// Chat handles one conversational turn.
// POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		jsonError(w, "user_id must be a valid UUID", http.StatusBadRequest)
		return
	}

	// A blank session ID starts a fresh conversation.
	sessionID := uuid.New()
	if trimmed := strings.TrimSpace(req.SessionID); trimmed != "" {
		sessionID, err = uuid.Parse(trimmed)
		if err != nil {
			jsonError(w, "session_id must be a valid UUID", http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	sess, err := h.sessions.Ensure(ctx, userID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, sessions.ErrSessionOwnership):
			jsonError(w, "session belongs to another user", http.StatusForbidden)
		case errors.Is(err, sessions.ErrUnknownUser):
			jsonError(w, "unknown user", http.StatusNotFound)
		default:
			h.logger.Error("session load failed", "session_id", sessionID, "error", err)
			jsonError(w, "failed to load session", http.StatusInternalServerError)
		}
		return
	}

	result, err := h.engine.HandleTurn(ctx, sess, req.Message, h.now())
	if err != nil {
		h.logger.Error("turn processing failed", "session_id", sessionID, "error", err)
		jsonError(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Save(ctx, sessionID, result.Messages, result.Meta); err != nil {
		h.logger.Error("session save failed", "session_id", sessionID, "error", err)
		jsonError(w, "failed to save session", http.StatusInternalServerError)
		return
	}

	// Cache write is best-effort; the database already holds the truth.
	if h.history != nil {
		if err := h.history.Save(ctx, sessionID, result.Messages); err != nil {
			h.logger.Warn("history cache write failed", "session_id", sessionID, "error", err)
		}
	}

	resp := ChatResponse{
		Reply:          result.Reply,
		SessionID:      sessionID.String(),
		Action:         string(result.Action),
		State:          string(result.Meta.State),
		ExtractedSlots: result.Slots,
	}
	if result.AppointmentID != nil {
		resp.AppointmentID = result.AppointmentID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HistoryResponse is returned by the transcript endpoint.
type HistoryResponse struct {
	SessionID string             `json:"session_id"`
	Messages  []sessions.Message `json:"messages"`
}

// History returns the message transcript for a session, served from the
// cache when warm and from the database otherwise.
// GET /chat/sessions/{sessionID}/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		jsonError(w, "session ID must be a valid UUID", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if h.history != nil {
		messages, err := h.history.Load(ctx, sessionID)
		if err != nil {
			h.logger.Warn("history cache read failed", "session_id", sessionID, "error", err)
		} else if messages != nil {
			writeJSON(w, http.StatusOK, HistoryResponse{SessionID: sessionID.String(), Messages: messages})
			return
		}
	}

	sess, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		h.logger.Error("session load failed", "session_id", sessionID, "error", err)
		jsonError(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	messages := sess.Messages
	if messages == nil {
		messages = []sessions.Message{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: sessionID.String(), Messages: messages})
}

// Health reports service liveness.
// GET /health
func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
