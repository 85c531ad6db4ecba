package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kotae/internal/config"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"the answer"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "m1"})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "question?", Options{MaxTokens: 500, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
	assert.Equal(t, "m1", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, systemPrompt, got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "question?", got.Messages[1].Content)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error body", http.StatusBadRequest, `{"error":{"message":"bad model"}}`},
		{"non-json 5xx", http.StatusBadGateway, `upstream down`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c, err := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = c.Complete(context.Background(), "q", Options{})
			assert.Error(t, err)
		})
	}
}

func TestOpenAIClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()
	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "first", Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, "second", Options{})
	assert.Error(t, err)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestNew_MissingKeyIsUnavailable(t *testing.T) {
	t.Setenv("KOTAE_TEST_NO_KEY", "")
	c := New(config.LLMConfig{APIKeyEnv: "KOTAE_TEST_NO_KEY"}, nil)
	_, err := c.Complete(context.Background(), "q", Options{})
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestNew_WithKey(t *testing.T) {
	t.Setenv("KOTAE_TEST_KEY", "secret")
	c := New(config.LLMConfig{APIKeyEnv: "KOTAE_TEST_KEY", Model: "llama"}, nil)
	assert.Equal(t, "llama", c.Model())
	_, ok := c.(*OpenAIClient)
	assert.True(t, ok)
}
