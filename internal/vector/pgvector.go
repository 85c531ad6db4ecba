package vector

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PgVectorIndex stores vectors in Postgres using the pgvector extension.
// Collections share one records table and are registered with their dimension.
type PgVectorIndex struct {
	db *sql.DB
}

// PgVectorConfig holds the Postgres connection settings.
type PgVectorConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

const pgvectorSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS vector_collections (
	name TEXT PRIMARY KEY,
	dimensions INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS vector_records (
	collection TEXT NOT NULL REFERENCES vector_collections(name) ON DELETE CASCADE,
	id TEXT NOT NULL,
	embedding vector NOT NULL,
	document_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	text TEXT NOT NULL,
	strategy TEXT NOT NULL,
	char_count INTEGER NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// NewPgVectorIndex connects to Postgres and creates the schema when missing.
func NewPgVectorIndex(ctx context.Context, cfg PgVectorConfig) (*PgVectorIndex, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres url is required")
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgvectorSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PgVectorIndex{db: db}, nil
}

// EnsureCollection registers the collection or checks its dimension.
func (p *PgVectorIndex) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return errors.New("invalid dimension")
	}
	if _, err := p.db.ExecContext(ctx,
		`INSERT INTO vector_collections (name, dimensions) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, dimensions); err != nil {
		return classifyPgError(err)
	}
	existing, err := p.dimensions(ctx, name)
	if err != nil {
		return err
	}
	if existing != dimensions {
		return dimensionError(dimensions, existing)
	}
	return nil
}

func (p *PgVectorIndex) dimensions(ctx context.Context, collection string) (int, error) {
	var dim int
	err := p.db.QueryRowContext(ctx, `SELECT dimensions FROM vector_collections WHERE name = $1`, collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return 0, classifyPgError(err)
	}
	return dim, nil
}

// Upsert writes all records in one transaction.
func (p *PgVectorIndex) Upsert(ctx context.Context, collection string, records []Record) error {
	dim, err := p.dimensions(ctx, collection)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			return dimensionError(len(r.Vector), dim)
		}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyPgError(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_records (collection, id, embedding, document_id, chunk_index, text, strategy, char_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (collection, id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index,
			text = EXCLUDED.text,
			strategy = EXCLUDED.strategy,
			char_count = EXCLUDED.char_count`)
	if err != nil {
		return classifyPgError(err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, collection, r.ID, pgvector.NewVector(r.Vector),
			r.Payload.DocumentID, r.Payload.ChunkIndex, r.Payload.Text, r.Payload.Strategy, r.Payload.CharCount); err != nil {
			return classifyPgError(err)
		}
	}
	return classifyPgError(tx.Commit())
}

// Search orders by cosine distance; Score is 1 - distance.
func (p *PgVectorIndex) Search(ctx context.Context, collection string, query []float32, k int) ([]Hit, error) {
	dim, err := p.dimensions(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(query) != dim {
		return nil, dimensionError(len(query), dim)
	}
	if k <= 0 {
		return nil, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, text, strategy, char_count, 1 - (embedding <=> $2) AS score
		FROM vector_records
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3`, collection, pgvector.NewVector(query), k)
	if err != nil {
		return nil, classifyPgError(err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Payload.DocumentID, &h.Payload.ChunkIndex, &h.Payload.Text,
			&h.Payload.Strategy, &h.Payload.CharCount, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, classifyPgError(rows.Err())
}

// Count returns the number of records in the collection.
func (p *PgVectorIndex) Count(ctx context.Context, collection string) (int, error) {
	if _, err := p.dimensions(ctx, collection); err != nil {
		return 0, err
	}
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_records WHERE collection = $1`, collection).Scan(&n); err != nil {
		return 0, classifyPgError(err)
	}
	return n, nil
}

// Close closes the connection pool.
func (p *PgVectorIndex) Close() error {
	return p.db.Close()
}

// classifyPgError marks connection-level failures and Postgres class 08/53/57P as transient.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return Transient(err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return Transient(err)
		}
	}
	return err
}
