package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
)

func TestNewIndex_Memory(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.VectorIndexPath = filepath.Join(t.TempDir(), "vectors.gob")

	idx, err := NewIndex(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewIndex(memory): %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	if err := idx.EnsureCollection(ctx, "documents", 3); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, "documents", []Record{{ID: "a", Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n, _ := idx.Count(ctx, "documents"); n != 1 {
		t.Errorf("Count=%d, want 1", n)
	}
}

func TestNewIndex_Qdrant(t *testing.T) {
	cfg := &config.Config{Vector: config.VectorConfig{Backend: "qdrant"}}
	config.ApplyDefaults(cfg)
	idx, err := NewIndex(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewIndex(qdrant): %v", err)
	}
	if _, ok := idx.(*RetryIndex); !ok {
		t.Errorf("expected retry wrapper, got %T", idx)
	}
}

func TestNewIndex_Unknown(t *testing.T) {
	cfg := &config.Config{Vector: config.VectorConfig{Backend: "faiss"}}
	if _, err := NewIndex(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
