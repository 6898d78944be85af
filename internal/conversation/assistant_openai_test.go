package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbook/booking-assistant/internal/sessions"
	"github.com/clearbook/booking-assistant/internal/slots"
)

func newOpenAIServer(t *testing.T, handler func(w http.ResponseWriter, body chatRequest)) (*httptest.Server, *OpenAIAssistant) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		handler(w, body)
	}))
	t.Cleanup(server.Close)

	assistant, err := NewOpenAIAssistant(OpenAIConfig{
		BaseURL: server.URL + "/v1",
		APIKey:  "test-key",
		Model:   "kimi-k2",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return server, assistant
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := chatResponse{}
	resp.Choices = append(resp.Choices, struct {
		Message chatMessage `json:"message"`
	}{Message: chatMessage{Role: "assistant", Content: content}})
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestOpenAIAssistantExtractSlots(t *testing.T) {
	_, assistant := newOpenAIServer(t, func(w http.ResponseWriter, body chatRequest) {
		assert.Equal(t, "kimi-k2", body.Model)
		require.NotNil(t, body.ResponseFormat)
		assert.Equal(t, "json_object", body.ResponseFormat.Type)
		chatReply(t, w, `{"intent":"booking","date":"2026-03-17","time":"15:00","timezone":"America/New_York"}`)
	})

	got, err := assistant.ExtractSlots(context.Background(), "book next tuesday at 3pm new york time", slots.Set{})
	require.NoError(t, err)
	assert.Equal(t, slots.Set{
		Intent:   "booking",
		Date:     "2026-03-17",
		Time:     "15:00",
		Timezone: "America/New_York",
	}, got)
}

func TestOpenAIAssistantComposeReplySendsHistory(t *testing.T) {
	_, assistant := newOpenAIServer(t, func(w http.ResponseWriter, body chatRequest) {
		require.Len(t, body.Messages, 4)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "assistant", body.Messages[2].Role)
		assert.Contains(t, body.Messages[3].Content, "ACTION: ask_time")
		chatReply(t, w, "What time works for you?")
	})

	history := []sessions.Message{
		{Role: "user", Content: "book me in on friday"},
		{Role: "assistant", Content: "Sure — what time?"},
	}
	reply, err := assistant.ComposeReply(context.Background(), history, ActionAskTime, map[string]any{"date": "2026-03-13"})
	require.NoError(t, err)
	assert.Equal(t, "What time works for you?", reply)
}

func TestOpenAIAssistantPropagatesAPIError(t *testing.T) {
	_, assistant := newOpenAIServer(t, func(w http.ResponseWriter, body chatRequest) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := assistant.ExtractSlots(context.Background(), "hi", slots.Set{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNewOpenAIAssistantRequiresKey(t *testing.T) {
	_, err := NewOpenAIAssistant(OpenAIConfig{})
	require.Error(t, err)
}
