// Package models defines core data structures for documents, chunks, chat turns and bookings.
package models

import (
	"fmt"
	"time"
)

// Strategy names a chunking strategy.
type Strategy string

const (
	StrategySentence Strategy = "sentence"
	StrategyFixed    Strategy = "fixed"
)

// ParseStrategy returns the Strategy for s or an ErrInvalidArgument error.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySentence, StrategyFixed:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: invalid chunking strategy %q", ErrInvalidArgument, s)
}

// Chunk is a contiguous piece of extracted document text.
type Chunk struct {
	Text      string   `json:"chunk_text"`
	Index     int      `json:"chunk_index"`
	Strategy  Strategy `json:"chunk_strategy"`
	CharCount int      `json:"char_count"`
}

// Document is the relational metadata for one ingested file.
// SourcePath, SourceMtime and SourceSize are only set for files ingested from disk.
type Document struct {
	ID          string    `json:"document_id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	UploadTime  time.Time `json:"upload_time"`
	ChunkCount  int       `json:"chunk_count"`
	Strategy    Strategy  `json:"chunking_strategy"`
	ChunkSize   int       `json:"chunk_size"`
	SourcePath  string    `json:"source_path,omitempty"`
	SourceMtime int64     `json:"source_mtime,omitempty"`
	SourceSize  int64     `json:"source_size,omitempty"`
}

// ChunkMeta is the relational record of a chunk.
type ChunkMeta struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	CharCount  int    `json:"char_count"`
}

// ChunkID returns the relational id of chunk i of a document.
func ChunkID(documentID string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, i)
}

// IngestResponse is returned after a document upload.
type IngestResponse struct {
	FileName    string  `json:"file_name"`
	FileType    string  `json:"file_type"`
	ItemID      string  `json:"item_id"`
	Message     string  `json:"message"`
	Chunks      int     `json:"chunks"`
	TotalChunks []Chunk `json:"total_chunks"`
}

// DocumentList is a page of documents.
type DocumentList struct {
	Total     int64       `json:"total"`
	Documents []*Document `json:"documents"`
}

// DocumentDetail is a document with its chunk records.
type DocumentDetail struct {
	Document *Document    `json:"document"`
	Chunks   []*ChunkMeta `json:"chunks"`
}

// RetrievalHit is a scored chunk returned by the vector index.
type RetrievalHit struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
}
