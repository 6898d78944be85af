package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clearbook/booking-assistant/internal/sessions"
	"github.com/clearbook/booking-assistant/internal/slots"
)

// OpenAIConfig describes how to reach an OpenAI-compatible chat API.
// Kimi (Moonshot) exposes the same wire format on a different base URL.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIAssistant implements Assistant against the chat-completions endpoint.
type OpenAIAssistant struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewOpenAIAssistant validates the configuration and returns a ready-to-use assistant.
func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("conversation: openai api key required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIAssistant{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   model,
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ExtractSlots asks the model for a JSON slot reading of the message.
func (a *OpenAIAssistant) ExtractSlots(ctx context.Context, message string, existing slots.Set) (slots.Set, error) {
	existingJSON, err := json.Marshal(existing)
	if err != nil {
		return slots.Set{}, fmt.Errorf("conversation: encode existing slots: %w", err)
	}
	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Message: %s\nExisting slots: %s", message, existingJSON)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	text, err := a.complete(ctx, req)
	if err != nil {
		return slots.Set{}, err
	}

	var extracted struct {
		Intent      string `json:"intent"`
		Date        string `json:"date"`
		Time        string `json:"time"`
		Timezone    string `json:"timezone"`
		ServiceType string `json:"service_type"`
	}
	if err := json.Unmarshal([]byte(text), &extracted); err != nil {
		return slots.Set{}, fmt.Errorf("conversation: decode extraction: %w", err)
	}
	return slots.Set{
		Intent:      extracted.Intent,
		Date:        extracted.Date,
		Time:        extracted.Time,
		Timezone:    extracted.Timezone,
		ServiceType: extracted.ServiceType,
	}, nil
}

// ComposeReply asks the model to write the user-facing text for an action.
func (a *OpenAIAssistant) ComposeReply(ctx context.Context, history []sessions.Message, action Action, payload map[string]any) (string, error) {
	contextJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("conversation: encode compose context: %w", err)
	}

	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: composeSystemPrompt})
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: content})
	}
	messages = append(messages, chatMessage{
		Role:    "user",
		Content: fmt.Sprintf("ACTION: %s\nCONTEXT_JSON: %s\nWrite the assistant reply.", action, contextJSON),
	})

	return a.complete(ctx, chatRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: 0.2,
	})
}

func (a *OpenAIAssistant) complete(ctx context.Context, payload chatRequest) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("conversation: failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("conversation: request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.apiKey))

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("conversation: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("conversation: read response failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("conversation: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("conversation: decode response failed: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("conversation: response contained no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
