package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/booking"
	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/intent"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Storage      *storage.SQLiteStorage
	Embedder     embedding.Embedder
	VectorIndex  vector.Index
	Sessions     session.Store
	LLM          llm.Client
	Indexer      *indexer.Indexer
	Bookings     *booking.Service
	Orchestrator *chat.Orchestrator
}

// Close releases every opened resource. The vector index is closed last so the
// in-process index persists after all writers are gone.
func (c *Components) Close() {
	if c.Sessions != nil {
		_ = c.Sessions.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
}

func (c *Components) deps(watch server.DirectoryLister, version string) server.Deps {
	return server.Deps{
		Chat:      c.Orchestrator,
		Bookings:  c.Bookings,
		Documents: c.Indexer,
		Stats:     c.Storage,
		Vectors:   c.VectorIndex,
		Watch:     watch,
		LLMModel:  c.LLM.Model(),
		Version:   version,
	}
}

// initializeComponents builds the pipeline from cfg. The embedder is created first so
// its dimensionality can size the vector collection.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.Embedder, err = embedding.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		if cfg.Embedding.Provider != "onnx" && cfg.Embedding.Provider != "" {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		logger.Warn("ONNX embedder unavailable, falling back to mock embeddings",
			zap.String("model_path", cfg.Embedding.ModelPath), zap.Error(err))
		c.Embedder = embedding.WithCache(embedding.NewMockEmbedder(cfg.Embedding.Dimensions), cfg.Embedding.CacheSize)
		cfg.Embedding.Provider = "mock"
	}
	dims := c.Embedder.Dimensions()
	cfg.Embedding.Dimensions = dims

	c.VectorIndex, err = vector.NewIndex(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if err := c.VectorIndex.EnsureCollection(ctx, cfg.Vector.Collection, dims); err != nil {
		return nil, fmt.Errorf("failed to prepare collection %s: %w", cfg.Vector.Collection, err)
	}
	logger.Info("vector index initialized",
		zap.String("backend", cfg.Vector.Backend),
		zap.String("collection", cfg.Vector.Collection),
		zap.Int("dimensions", dims))

	sessionOpts := session.Options{MaxHistory: cfg.Session.MaxHistory, TTL: cfg.Session.TTL}
	if cfg.Session.RedisURL != "" {
		rs, err := session.NewRedisStoreFromURL(ctx, cfg.Session.RedisURL, sessionOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.Sessions = rs
	} else {
		c.Sessions = session.NewMemoryStore(sessionOpts)
	}

	c.LLM = llm.New(cfg.LLM, logger)

	c.Indexer = indexer.NewIndexer(c.Storage, c.Embedder, c.VectorIndex, cfg.Vector.Collection, cfg.Chunking,
		indexer.WithLogger(logger),
		indexer.WithAllowedExtensions(cfg.Ingest.AllowedExtensions),
	)
	c.Bookings = booking.NewService(c.Storage, logger)
	c.Orchestrator = chat.NewOrchestrator(
		c.Sessions,
		intent.NewExtractor(c.LLM, logger),
		search.NewRetriever(c.Embedder, c.VectorIndex, cfg.Vector.Collection,
			search.WithTimeout(cfg.Retrieval.Timeout),
			search.WithLogger(logger),
		),
		answer.NewSynthesizer(c.LLM, logger),
		c.Bookings,
		chat.Config{
			TopK:         cfg.Retrieval.TopK,
			ContextTurns: cfg.Session.ContextTurns,
			PreviewChars: cfg.Retrieval.SourcePreviewChars,
		},
		logger,
	)
	return c, nil
}

// ingestRequest builds a direct ingestion request; zero flags fall back to configured defaults.
func ingestRequest(fileName string, content []byte, strategy string, chunkSize int) indexer.IngestRequest {
	req := indexer.IngestRequest{
		FileName: fileName,
		Content:  content,
		Strategy: strategy,
	}
	if chunkSize != 0 {
		req.ChunkSize = &chunkSize
	}
	return req
}
