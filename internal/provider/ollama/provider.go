// Package ollama implements the LLMProvider interface against a local Ollama
// server using its native chat endpoint, which streams newline-delimited JSON
// instead of SSE.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/docweaver/docweaver/internal/provider"
)

func init() {
	provider.RegisterProvider("ollama", func(baseURL, _ string, _ map[string]string) provider.LLMProvider {
		return New(baseURL)
	})
}

// Provider implements the LLMProvider interface for a local Ollama server.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates a new Ollama provider.
func New(baseURL string) *Provider {
	return &Provider{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// apiRequest is the request body sent to /api/chat.
type apiRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
	Stream   bool         `json:"stream"`
	Options  *apiOptions  `json:"options,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

// chatChunk is one line of the streamed response.
type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// Stream sends a chat request to the Ollama server and returns a channel of
// StreamEvents parsed from the JSON-lines response.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	apiReq := apiRequest{
		Model:  req.Model,
		Stream: true,
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		apiReq.Options = &apiOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}
	if req.System != "" {
		apiReq.Messages = append(apiReq.Messages, apiMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, apiMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &provider.APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	ch := make(chan provider.StreamEvent)
	go p.processStream(ctx, resp.Body, ch)

	return ch, nil
}

// processStream reads JSON lines from the response body and sends StreamEvents.
func (p *Provider) processStream(ctx context.Context, body io.ReadCloser, ch chan<- provider.StreamEvent) {
	defer close(ch)
	defer body.Close()

	emit := func(evt provider.StreamEvent) bool {
		select {
		case ch <- evt:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			if !emit(provider.StreamEvent{Type: "error", Error: fmt.Errorf("parsing chunk: %w", err)}) {
				return
			}
			continue
		}

		if chunk.Error != "" {
			emit(provider.StreamEvent{Type: "error", Error: fmt.Errorf("ollama: %s", chunk.Error)})
			return
		}
		if chunk.Message.Content != "" {
			if !emit(provider.StreamEvent{Type: "text_delta", Text: chunk.Message.Content}) {
				return
			}
		}
		if chunk.Done {
			emit(provider.StreamEvent{Type: "stop"})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(provider.StreamEvent{Type: "error", Error: err})
	}
}
