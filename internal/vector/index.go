// Package vector provides vector index adapters and similarity search over named collections.
package vector

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match its collection's dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrCollectionNotFound is returned when a collection has not been created.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrTransient marks failures that may succeed on retry (network errors, 5xx, 429).
	ErrTransient = errors.New("transient vector index error")
)

// Index stores chunk vectors with their payload and answers nearest-neighbour queries.
type Index interface {
	// EnsureCollection creates the collection if missing. An existing collection with a
	// different dimension is an ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, name string, dimensions int) error
	Upsert(ctx context.Context, collection string, records []Record) error
	// Search returns up to k hits ordered by descending cosine similarity.
	Search(ctx context.Context, collection string, query []float32, k int) ([]Hit, error)
	Count(ctx context.Context, collection string) (int, error)
	Close() error
}

// Payload is the chunk data stored next to each vector.
type Payload struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	Strategy   string `json:"strategy"`
	CharCount  int    `json:"char_count"`
}

// Record is one vector with its ID and payload.
type Record struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Hit is a single search result. Higher Score is more relevant.
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// Transient wraps err so that errors.Is(err, ErrTransient) holds.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

func dimensionError(got, want int) error {
	return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, got, want)
}
