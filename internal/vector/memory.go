package vector

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MemoryIndex is an in-process vector index using brute-force cosine search.
// When a path is set, the index is loaded from it on creation and rewritten after every upsert.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	path        string
	logger      *zap.Logger
}

type memoryCollection struct {
	Dimensions int
	Records    []Record
}

// MemoryOption configures a MemoryIndex.
type MemoryOption func(*MemoryIndex)

// WithPath persists the index to path.
func WithPath(path string) MemoryOption {
	return func(m *MemoryIndex) { m.path = path }
}

// WithMemoryLogger sets a logger for persistence events.
func WithMemoryLogger(l *zap.Logger) MemoryOption {
	return func(m *MemoryIndex) { m.logger = l }
}

// NewMemoryIndex creates an in-memory index, loading persisted collections when a path is set.
func NewMemoryIndex(opts ...MemoryOption) (*MemoryIndex, error) {
	m := &MemoryIndex{collections: make(map[string]*memoryCollection)}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// EnsureCollection creates the collection when missing.
func (m *MemoryIndex) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		if c.Dimensions != dimensions {
			return dimensionError(dimensions, c.Dimensions)
		}
		return nil
	}
	m.collections[name] = &memoryCollection{Dimensions: dimensions}
	return nil
}

// Upsert appends records to the collection. Records with an existing ID replace it.
func (m *MemoryIndex) Upsert(ctx context.Context, collection string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	for _, r := range records {
		if len(r.Vector) != c.Dimensions {
			return dimensionError(len(r.Vector), c.Dimensions)
		}
	}
	pos := make(map[string]int, len(c.Records))
	for i, r := range c.Records {
		pos[r.ID] = i
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		if i, ok := pos[r.ID]; ok {
			c.Records[i] = r
			continue
		}
		pos[r.ID] = len(c.Records)
		c.Records = append(c.Records, r)
	}
	return m.saveLocked()
}

// Search returns the top-k records by cosine similarity.
func (m *MemoryIndex) Search(ctx context.Context, collection string, query []float32, k int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if len(query) != c.Dimensions {
		return nil, dimensionError(len(query), c.Dimensions)
	}
	if k <= 0 || len(c.Records) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(c.Records))
	for i, r := range c.Records {
		hits[i] = Hit{ID: r.ID, Score: CosineSimilarity(query, r.Vector), Payload: r.Payload}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Count returns the number of records in the collection.
func (m *MemoryIndex) Count(ctx context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return len(c.Records), nil
}

// Close flushes the index to disk when a path is set.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

// saveLocked writes all collections to a temp file and renames it over the index path.
func (m *MemoryIndex) saveLocked() error {
	if m.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(m.collections); err != nil {
		f.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// load reads persisted collections. A missing file leaves the index empty.
func (m *MemoryIndex) load() error {
	if m.path == "" {
		return nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	collections := make(map[string]*memoryCollection)
	if err := gob.NewDecoder(f).Decode(&collections); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	m.collections = collections
	if m.logger != nil {
		for name, c := range collections {
			m.logger.Debug("vector collection loaded",
				zap.String("collection", name), zap.Int("records", len(c.Records)), zap.Int("dimensions", c.Dimensions))
		}
	}
	return nil
}
