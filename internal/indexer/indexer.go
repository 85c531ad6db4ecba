package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// IngestRequest is one document to ingest. An empty Strategy and a nil ChunkSize use the
// configured defaults; a nil Overlap uses the strategy's default overlap.
type IngestRequest struct {
	FileName  string
	Content   []byte
	Strategy  string
	ChunkSize *int
	Overlap   *int

	// set for files read from disk
	sourcePath  string
	sourceMtime int64
	sourceSize  int64
}

// Store is the metadata persistence the indexer needs.
type Store interface {
	storage.DocumentStore
	CountDocuments(ctx context.Context) (int64, error)
}

// Indexer runs the ingestion pipeline: extract, chunk, embed, store metadata, upsert vectors.
type Indexer struct {
	store       Store
	embedder    embedding.Embedder
	index       vector.Index
	collection  string
	extractor   *extract.Extractor
	chunking    config.ChunkingConfig
	allowedExts []string
	logger      *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithAllowedExtensions overrides the accepted file extensions (with leading dot).
func WithAllowedExtensions(exts []string) IndexerOption {
	return func(idx *Indexer) { idx.allowedExts = exts }
}

// NewIndexer creates an indexer writing vectors to collection.
func NewIndexer(
	store Store,
	embedder embedding.Embedder,
	index vector.Index,
	collection string,
	chunking config.ChunkingConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		store:       store,
		embedder:    embedder,
		index:       index,
		collection:  collection,
		extractor:   extract.NewExtractor(),
		chunking:    chunking,
		allowedExts: []string{".pdf", ".txt"},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// AllowedExtensions returns the accepted extensions.
func (idx *Indexer) AllowedExtensions() []string {
	return idx.allowedExts
}

// Ingest processes one document. Validation failures wrap models.ErrInvalidArgument,
// models.ErrInvalidFileType or models.ErrEmptyText; embedder and index failures wrap
// models.ErrUpstream. If the vector upsert fails the stored metadata is removed again.
func (idx *Indexer) Ingest(ctx context.Context, req IngestRequest) (*models.IngestResponse, error) {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !extensionAllowed(ext, idx.allowedExts) {
		return nil, fmt.Errorf("%w: %q, allowed: %s", models.ErrInvalidFileType, ext, strings.Join(idx.allowedExts, ", "))
	}
	strategy, chunkSize, err := idx.resolveChunking(req.Strategy, req.ChunkSize)
	if err != nil {
		return nil, err
	}
	overlap := idx.resolveOverlap(strategy, chunkSize, req.Overlap)

	text, err := idx.extractor.ExtractBytes(req.Content, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	// chunk boundaries are taken over the extracted characters, whitespace included
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.ErrEmptyText
	}
	idx.logger.Debug("extracted text", zap.String("file", req.FileName), zap.Int("chars", len(text)))

	chunks, err := Chunk(text, strategy, chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: failed to generate chunks", models.ErrEmptyText)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate embeddings: %w", models.ErrUpstream, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", models.ErrUpstream, len(embeddings), len(chunks))
	}

	doc := &models.Document{
		ID:          fileid.NewDocumentID(),
		FileName:    req.FileName,
		FileType:    strings.TrimPrefix(ext, "."),
		UploadTime:  time.Now().UTC(),
		ChunkCount:  len(chunks),
		Strategy:    strategy,
		ChunkSize:   chunkSize,
		SourcePath:  req.sourcePath,
		SourceMtime: req.sourceMtime,
		SourceSize:  req.sourceSize,
	}
	metas := make([]*models.ChunkMeta, len(chunks))
	records := make([]vector.Record, len(chunks))
	for i, ch := range chunks {
		metas[i] = &models.ChunkMeta{
			ChunkID:    models.ChunkID(doc.ID, ch.Index),
			DocumentID: doc.ID,
			ChunkIndex: ch.Index,
			Text:       ch.Text,
			CharCount:  ch.CharCount,
		}
		records[i] = vector.Record{
			ID:     fileid.NewRecordID(),
			Vector: embeddings[i],
			Payload: vector.Payload{
				DocumentID: doc.ID,
				ChunkIndex: ch.Index,
				Text:       ch.Text,
				Strategy:   string(ch.Strategy),
				CharCount:  ch.CharCount,
			},
		}
	}

	if err := idx.store.SaveDocument(ctx, doc, metas); err != nil {
		return nil, fmt.Errorf("failed to store document metadata: %w", err)
	}
	if err := idx.index.Upsert(ctx, idx.collection, records); err != nil {
		if delErr := idx.store.DeleteDocument(context.WithoutCancel(ctx), doc.ID); delErr != nil {
			idx.logger.Error("failed to remove metadata after vector upsert failure",
				zap.String("doc_id", doc.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: failed to store vectors: %w", models.ErrUpstream, err)
	}

	idx.logger.Info("document ingested",
		zap.String("doc_id", doc.ID),
		zap.String("file", req.FileName),
		zap.String("strategy", string(strategy)),
		zap.Int("chunks", len(chunks)))
	return &models.IngestResponse{
		FileName:    req.FileName,
		FileType:    doc.FileType,
		ItemID:      doc.ID,
		Message:     fmt.Sprintf("Document %s ingested successfully", doc.ID),
		Chunks:      len(chunks),
		TotalChunks: chunks,
	}, nil
}

func (idx *Indexer) resolveChunking(rawStrategy string, explicitSize *int) (models.Strategy, int, error) {
	if rawStrategy == "" {
		rawStrategy = idx.chunking.DefaultStrategy
	}
	strategy, err := models.ParseStrategy(rawStrategy)
	if err != nil {
		return "", 0, err
	}
	chunkSize := idx.chunking.DefaultChunkSize
	if explicitSize != nil {
		chunkSize = *explicitSize
	}
	if chunkSize < idx.chunking.MinChunkSize || chunkSize > idx.chunking.MaxChunkSize {
		return "", 0, fmt.Errorf("%w: chunk_size must be between %d and %d, got %d",
			models.ErrInvalidArgument, idx.chunking.MinChunkSize, idx.chunking.MaxChunkSize, chunkSize)
	}
	return strategy, chunkSize, nil
}

// resolveOverlap returns the explicit overlap unchanged. A configured default that does not fit
// the chunk size is reduced to a quarter of it.
func (idx *Indexer) resolveOverlap(strategy models.Strategy, chunkSize int, explicit *int) int {
	if explicit != nil {
		return *explicit
	}
	overlap := idx.chunking.SentenceOverlap
	if strategy == models.StrategyFixed {
		overlap = idx.chunking.FixedOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return overlap
}

// IngestFile ingests a file from disk with the default strategy and chunk size.
// A file whose absolute path, mtime and size match an already ingested document is skipped and
// the existing document ID is returned.
func (idx *Indexer) IngestFile(ctx context.Context, path string) (*models.IngestResponse, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", models.ErrInvalidArgument, absPath)
	}
	if doc, ok := idx.unchanged(ctx, absPath, info); ok {
		idx.logger.Debug("skipping unchanged file", zap.String("path", absPath), zap.String("doc_id", doc.ID))
		return &models.IngestResponse{
			FileName: doc.FileName,
			FileType: doc.FileType,
			ItemID:   doc.ID,
			Message:  fmt.Sprintf("Document %s is unchanged, skipped", doc.ID),
			Chunks:   doc.ChunkCount,
		}, nil
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return idx.Ingest(ctx, IngestRequest{
		FileName:    filepath.Base(absPath),
		Content:     content,
		sourcePath:  absPath,
		sourceMtime: info.ModTime().UnixNano(),
		sourceSize:  info.Size(),
	})
}

func (idx *Indexer) unchanged(ctx context.Context, absPath string, info os.FileInfo) (*models.Document, bool) {
	doc, err := idx.store.GetDocumentBySourcePath(ctx, absPath)
	if err != nil {
		return nil, false
	}
	return doc, doc.SourceMtime == info.ModTime().UnixNano() && doc.SourceSize == info.Size()
}

// IngestDirectory walks dir and ingests every regular file with an allowed extension.
// Returns the number of files processed (ingested or skipped as unchanged). A file that fails
// validation is logged and skipped; other errors stop the walk.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, recursive bool) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if !recursive && path != absDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensionAllowed(filepath.Ext(path), idx.allowedExts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := idx.IngestFile(ctx, path); ingestErr != nil {
			if models.IsValidation(ingestErr) {
				idx.logger.Warn("skipping file", zap.String("path", path), zap.Error(ingestErr))
				return nil
			}
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

// Documents returns a page of documents newest first and the total count.
func (idx *Indexer) Documents(ctx context.Context, offset, limit int) (*models.DocumentList, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0 and limit > 0", models.ErrInvalidArgument)
	}
	docs, err := idx.store.ListDocuments(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	total, err := idx.store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	return &models.DocumentList{Total: total, Documents: docs}, nil
}

// Document returns a document with its chunk records.
func (idx *Indexer) Document(ctx context.Context, id string) (*models.DocumentDetail, error) {
	doc, err := idx.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	chunks, err := idx.store.GetChunksByDocumentID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	if chunks == nil {
		chunks = []*models.ChunkMeta{}
	}
	return &models.DocumentDetail{Document: doc, Chunks: chunks}, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
