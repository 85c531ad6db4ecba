package vector

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RetryIndex retries transient failures of the wrapped index with linear backoff.
// Non-transient errors and context cancellation are returned at once.
type RetryIndex struct {
	next        Index
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

// WithRetry wraps idx. maxAttempts below 1 is treated as 1.
func WithRetry(idx Index, maxAttempts int, backoff time.Duration, logger *zap.Logger) *RetryIndex {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryIndex{next: idx, maxAttempts: maxAttempts, backoff: backoff, logger: logger}
}

func (r *RetryIndex) do(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrTransient) || ctx.Err() != nil || attempt == r.maxAttempts {
			return err
		}
		r.logger.Warn("vector index call failed, retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (r *RetryIndex) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	return r.do(ctx, "ensure_collection", func() error { return r.next.EnsureCollection(ctx, name, dimensions) })
}

func (r *RetryIndex) Upsert(ctx context.Context, collection string, records []Record) error {
	return r.do(ctx, "upsert", func() error { return r.next.Upsert(ctx, collection, records) })
}

func (r *RetryIndex) Search(ctx context.Context, collection string, query []float32, k int) ([]Hit, error) {
	var hits []Hit
	err := r.do(ctx, "search", func() error {
		var err error
		hits, err = r.next.Search(ctx, collection, query, k)
		return err
	})
	return hits, err
}

func (r *RetryIndex) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := r.do(ctx, "count", func() error {
		var err error
		n, err = r.next.Count(ctx, collection)
		return err
	})
	return n, err
}

func (r *RetryIndex) Close() error {
	return r.next.Close()
}
