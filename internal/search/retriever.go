// Package search retrieves the document chunks most relevant to a query.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// NoResults is the context returned when the index has nothing relevant.
const NoResults = "No relevant information found in documents."

// Retriever embeds a query and searches one vector collection.
type Retriever struct {
	embedder   embedding.Embedder
	index      vector.Index
	collection string
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTimeout bounds each embedder and index call. Zero means no extra bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) { r.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a retriever over collection.
func NewRetriever(embedder embedding.Embedder, index vector.Index, collection string, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:   embedder,
		index:      index,
		collection: collection,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the formatted context block for the topK nearest chunks, together with the hits
// in index order. With no hits the context is NoResults.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (string, []models.RetrievalHit, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil, fmt.Errorf("%w: query cannot be empty", models.ErrInvalidArgument)
	}
	if topK <= 0 {
		return "", nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidArgument, topK)
	}
	start := time.Now()

	vecs, err := r.embedBatch(ctx, []string{query})
	if err != nil {
		return "", nil, fmt.Errorf("%w: embedding failed: %w", models.ErrUpstream, err)
	}
	if len(vecs) != 1 {
		return "", nil, fmt.Errorf("%w: embedder returned %d vectors for one query", models.ErrUpstream, len(vecs))
	}

	found, err := r.search(ctx, vecs[0], topK)
	if errors.Is(err, vector.ErrCollectionNotFound) {
		found, err = nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: vector search failed: %w", models.ErrUpstream, err)
	}

	hits := make([]models.RetrievalHit, 0, len(found))
	for _, h := range found {
		hits = append(hits, models.RetrievalHit{
			ID:         h.ID,
			Score:      h.Score,
			Text:       h.Payload.Text,
			DocumentID: h.Payload.DocumentID,
			ChunkIndex: h.Payload.ChunkIndex,
		})
	}
	r.logger.Debug("retrieved context",
		zap.Int("hits", len(hits)),
		zap.Int("top_k", topK),
		zap.Duration("took", time.Since(start)))
	return FormatContext(hits), hits, nil
}

func (r *Retriever) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.embedder.EmbedBatch(ctx, texts)
}

func (r *Retriever) search(ctx context.Context, q []float32, k int) ([]vector.Hit, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.index.Search(ctx, r.collection, q, k)
}

func (r *Retriever) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// FormatContext renders hits as numbered source blocks separated by a blank line.
func FormatContext(hits []models.RetrievalHit) string {
	if len(hits) == 0 {
		return NoResults
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[Source %d] (Relevance: %.2f)\n%s", i+1, h.Score, h.Text)
	}
	return strings.Join(parts, "\n\n")
}
