package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kotae/internal/config"
)

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req openAIEmbeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		// Reverse order to check that results follow the input index.
		var data []item
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(i), 1, 0}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Dimensions: 3})
	require.NoError(t, err)

	embs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, embs, 2)
	assert.Equal(t, float32(0), embs[0][0])
	assert.Equal(t, float32(1), embs[1][0])

	one, err := e.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, one, 3)
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	assert.Error(t, err, "missing key")

	_, err = NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", Model: "custom-model"})
	assert.Error(t, err, "unknown model without dimensions")

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimensions())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()
	e, err = NewOpenAIEmbedder(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL, Dimensions: 3})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestOllamaEmbedder_ProbesDimensions(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		embs := make([][]float32, len(req.Input))
		for i := range embs {
			embs[i] = []float32{0.1, 0.2, 0.3, 0.4}
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embs})
	}))
	defer srv.Close()

	ctx := context.Background()
	e, err := NewOllamaEmbedder(ctx, srv.URL, "nomic-embed-text", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, e.Dimensions())

	embs, err := e.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, embs, 3)
	assert.Equal(t, 2, calls)
}

func TestOllamaEmbedder_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()
	_, err := NewOllamaEmbedder(context.Background(), srv.URL, "missing", 0, 0)
	assert.Error(t, err)

	e, err := NewOllamaEmbedder(context.Background(), srv.URL, "missing", 768, 0)
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: "mock", Dimensions: 16, CacheSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimensions())
	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok, "factory should wrap embedders in a cache")

	_, err = NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: "word2vec"})
	assert.Error(t, err)
}
