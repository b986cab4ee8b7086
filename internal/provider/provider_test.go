package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docweaver/docweaver/internal/config"
)

// ---------- mocks ----------

type stubProvider struct {
	events []StreamEvent
	err    error
}

func (s *stubProvider) Stream(_ context.Context, _ CompletionRequest) (<-chan StreamEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan StreamEvent, len(s.events))
	for _, e := range s.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

// ---------- tests ----------

func TestText(t *testing.T) {
	p := &stubProvider{events: []StreamEvent{
		{Type: "text_delta", Text: "Hello, "},
		{Type: "text_delta", Text: "world."},
		{Type: "stop"},
	}}

	text, err := Text(context.Background(), p, CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world.", text)
}

func TestTextStreamError(t *testing.T) {
	p := &stubProvider{events: []StreamEvent{
		{Type: "text_delta", Text: "partial"},
		{Type: "error", Error: errors.New("overloaded")},
	}}

	_, err := Text(context.Background(), p, CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestTextOpenError(t *testing.T) {
	want := &APIError{StatusCode: 401, Body: "unauthorized"}
	p := &stubProvider{err: want}

	_, err := Text(context.Background(), p, CompletionRequest{})
	assert.ErrorIs(t, err, want)
}

func TestAPIError(t *testing.T) {
	e := &APIError{StatusCode: 429, Body: "  rate limited  "}
	assert.Equal(t, "API error 429: rate limited", e.Error())
	assert.True(t, e.IsTransient())

	assert.True(t, (&APIError{StatusCode: http.StatusBadGateway}).IsTransient())
	assert.False(t, (&APIError{StatusCode: http.StatusBadRequest}).IsTransient())
	assert.False(t, (&APIError{StatusCode: http.StatusNotFound}).IsTransient())
}

func TestAPIErrorTruncatesBody(t *testing.T) {
	e := &APIError{StatusCode: 500, Body: strings.Repeat("x", 1000)}
	assert.Less(t, len(e.Error()), 250)
}

func TestNewUserMessage(t *testing.T) {
	m := NewUserMessage("hi")
	assert.Equal(t, Message{Role: "user", Content: "hi"}, m)
}

func TestNewProviderUnknown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider.Default = "no-such-provider"

	RegisterProvider("openai", func(baseURL, apiKey string, extraHeaders map[string]string) LLMProvider {
		return &stubProvider{}
	})

	_, err := NewProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewProviderOpenAICompatible(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	var gotBase, gotKey string
	RegisterProvider("openai", func(baseURL, apiKey string, extraHeaders map[string]string) LLMProvider {
		gotBase, gotKey = baseURL, apiKey
		return &stubProvider{}
	})

	cfg := config.DefaultConfig()
	cfg.Provider.Default = "groq"
	cfg.Provider.OpenAI = []config.OpenAICompatibleConfig{{
		Name:         "groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		APIKeySource: "env",
	}}

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, "https://api.groq.com/openai/v1", gotBase)
	assert.Equal(t, "gsk-test", gotKey)
}

func TestNewProviderOllamaDefaultBaseURL(t *testing.T) {
	var gotBase string
	RegisterProvider("ollama", func(baseURL, apiKey string, extraHeaders map[string]string) LLMProvider {
		gotBase = baseURL
		return &stubProvider{}
	})

	cfg := config.DefaultConfig()
	cfg.Provider.Default = "ollama"

	_, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", gotBase)
}
