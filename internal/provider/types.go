// Package provider defines the interface to text-generation services and the
// shared request/response types. Concrete providers register themselves via
// RegisterProvider; the factory picks one from configuration.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// LLMProvider defines the interface for interacting with an LLM provider.
type LLMProvider interface {
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)
}

// CompletionRequest represents a request to an LLM for completion.
type CompletionRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamEvent represents a single event in a streaming response.
type StreamEvent struct {
	Type  string // "text_delta", "stop", "error"
	Text  string
	Error error
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}

// APIError reports a non-2xx response from a provider's HTTP API. The status
// code drives retry classification: rate limits and server-side failures are
// transient, other client errors are permanent.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, body)
}

// IsTransient reports whether the error is worth retrying.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Text drives a streaming completion to the end and returns the accumulated
// text. An error event anywhere in the stream fails the whole call.
func Text(ctx context.Context, p LLMProvider, req CompletionRequest) (string, error) {
	ch, err := p.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for evt := range ch {
		switch evt.Type {
		case "text_delta":
			sb.WriteString(evt.Text)
		case "error":
			return "", evt.Error
		}
	}
	return sb.String(), nil
}
