package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docweaver/docweaver/internal/provider"
)

func TestStream(t *testing.T) {
	var gotReq apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_, _ = w.Write([]byte(
			`{"message":{"content":"Hel"},"done":false}` + "\n" +
				`{"message":{"content":"lo"},"done":false}` + "\n" +
				`{"message":{"content":""},"done":true}` + "\n"))
	}))
	defer srv.Close()

	p := New(srv.URL)
	text, err := provider.Text(context.Background(), p, provider.CompletionRequest{
		Model:     "llama3",
		System:    "be brief",
		Messages:  []provider.Message{provider.NewUserMessage("hi")},
		MaxTokens: 32,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)

	assert.Equal(t, "llama3", gotReq.Model)
	require.NotNil(t, gotReq.Options)
	assert.Equal(t, 32, gotReq.Options.NumPredict)

	// System prompt travels as the first message.
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestStreamServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	p := New(srv.URL)
	_, err := p.Stream(context.Background(), provider.CompletionRequest{Model: "nope"})
	require.Error(t, err)

	var apiErr *provider.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestStreamChunkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"out of memory"}` + "\n"))
	}))
	defer srv.Close()

	p := New(srv.URL)
	_, err := provider.Text(context.Background(), p, provider.CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}
