package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

// Backend names a vector index implementation.
type Backend string

const (
	// BackendMemory is the in-process index persisted to a local file. Good for small corpora.
	BackendMemory Backend = "memory"
	// BackendQdrant uses a Qdrant server over REST.
	BackendQdrant Backend = "qdrant"
	// BackendPgVector uses Postgres with the pgvector extension.
	BackendPgVector Backend = "pgvector"
)

// NewIndex creates the configured backend wrapped with bounded retries.
func NewIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		idx Index
		err error
	)
	switch Backend(cfg.Vector.Backend) {
	case BackendMemory, "":
		idx, err = NewMemoryIndex(WithPath(cfg.Storage.VectorIndexPath), WithMemoryLogger(logger))
	case BackendQdrant:
		idx, err = NewQdrantIndex(QdrantConfig{
			URL:     cfg.Vector.Qdrant.URL,
			APIKey:  config.Secret(cfg.Vector.Qdrant.APIKeyEnv),
			Timeout: cfg.Vector.Qdrant.Timeout,
		})
	case BackendPgVector:
		idx, err = NewPgVectorIndex(ctx, PgVectorConfig{
			URL:          cfg.Vector.Postgres.URL,
			MaxOpenConns: cfg.Vector.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Vector.Postgres.MaxIdleConns,
		})
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: memory, qdrant, pgvector)", cfg.Vector.Backend)
	}
	if err != nil {
		return nil, err
	}
	return WithRetry(idx, cfg.Vector.MaxAttempts, cfg.Vector.RetryBackoff, logger), nil
}
