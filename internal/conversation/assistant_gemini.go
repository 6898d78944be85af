package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/clearbook/booking-assistant/internal/sessions"
	"github.com/clearbook/booking-assistant/internal/slots"
)

const extractSystemPrompt = "You extract intent + appointment booking slots from ONE user message. " +
	"Respond with a single JSON object with keys intent, date, time, timezone, service_type. " +
	"If you are uncertain about a field, use null. Do NOT invent a date/time/timezone. " +
	"intent must be one of: booking, inquiry, reschedule. " +
	"date is YYYY-MM-DD, time is HH:MM 24-hour, timezone is an IANA name or UTC."

const composeSystemPrompt = "You are a helpful, conversational appointment booking assistant for a generic business. " +
	"You respond naturally to ANY user message (including greetings or unrelated questions), " +
	"but your primary goal is to help book/reschedule/cancel appointments. " +
	"You must follow the requested ACTION and use CONTEXT. " +
	"Rules: be concise; ask at most one question at a time when collecting booking details; " +
	"do not invent a final date/time if missing; when proposing alternatives, list up to two. " +
	"If the user asks something unrelated, answer briefly and then smoothly steer back to booking help.\n\n" +
	"ACTION meanings:\n" +
	"- ask_date: request a date\n" +
	"- ask_time: request a time\n" +
	"- general_chat: respond conversationally to the user's message and offer booking help\n" +
	"- cancelled: confirm cancellation\n" +
	"- booked: confirm the booking\n" +
	"- already_booked: note a booking already exists and invite a reschedule\n" +
	"- conflict: say slot is booked and propose alternatives\n" +
	"- view_booking: summarize the latest booking or say none exists\n" +
	"- invalid_datetime: ask for date+time again\n" +
	"- outside_rules: explain business-hours rule"

// GeminiAssistant implements Assistant with Google's Gemini API.
type GeminiAssistant struct {
	client  *genai.Client
	modelID string
}

// NewGeminiAssistant creates an assistant backed by Gemini.
func NewGeminiAssistant(ctx context.Context, apiKey, modelID string) (*GeminiAssistant, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: create gemini client: %w", err)
	}
	return &GeminiAssistant{client: client, modelID: modelID}, nil
}

// Close releases the underlying API client.
func (a *GeminiAssistant) Close() error {
	return a.client.Close()
}

// ExtractSlots asks the model for a JSON slot reading of the message.
func (a *GeminiAssistant) ExtractSlots(ctx context.Context, message string, existing slots.Set) (slots.Set, error) {
	model := a.client.GenerativeModel(a.modelID)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(extractSystemPrompt))

	existingJSON, err := json.Marshal(existing)
	if err != nil {
		return slots.Set{}, fmt.Errorf("conversation: encode existing slots: %w", err)
	}
	prompt := fmt.Sprintf("Message: %s\nExisting slots: %s", message, existingJSON)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return slots.Set{}, fmt.Errorf("conversation: gemini extraction failed: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return slots.Set{}, errors.New("conversation: gemini returned empty extraction")
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
func (a *GeminiAssistant) ComposeReply(ctx context.Context, history []sessions.Message, action Action, payload map[string]any) (string, error) {
	model := a.client.GenerativeModel(a.modelID)
	model.SetTemperature(0.2)
	model.SystemInstruction = genai.NewUserContent(genai.Text(composeSystemPrompt))

	cs := model.StartChat()
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	contextJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("conversation: encode compose context: %w", err)
	}
	final := fmt.Sprintf("ACTION: %s\nCONTEXT_JSON: %s\nWrite the assistant reply.", action, contextJSON)

	resp, err := cs.SendMessage(ctx, genai.Text(final))
	if err != nil {
		return "", fmt.Errorf("conversation: gemini composition failed: %w", err)
	}
	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
