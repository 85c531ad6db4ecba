package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("chat request", zap.String("session_id", req.SessionID), zap.Int("query_len", len(req.Query)))
	resp, err := s.deps.Chat.HandleTurn(r.Context(), req.SessionID, req.Query)
	if err != nil {
		s.respondServiceError(w, "chat failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.deps.Chat.History(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		s.respondServiceError(w, "history failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	if err := s.deps.Chat.ClearHistory(r.Context(), id); err != nil {
		s.respondServiceError(w, "clear history failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("History cleared for session %s", id)})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := s.deps.Bookings.Create(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, "booking failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.BookingResponse{
		Success:   true,
		BookingID: b.ID,
		Name:      b.Name,
		Email:     b.Email,
		Date:      b.Date,
		Time:      b.Time,
		Message:   "Interview booking confirmed successfully!",
	})
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.deps.Bookings.List(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.respondServiceError(w, "list bookings failed", err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	s.respondJSON(w, http.StatusOK, models.BookingList{Total: len(bookings), Bookings: bookings})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	b, err := s.deps.Bookings.Get(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, "get booking failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Ingest.MaxUploadBytes
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", maxBytes))
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	req := indexer.IngestRequest{
		FileName: header.Filename,
		Content:  content,
		Strategy: r.FormValue("strategy"),
	}
	if v := r.FormValue("chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "chunk_size must be an integer")
			return
		}
		req.ChunkSize = &n
	}
	if v := r.FormValue("overlap"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "overlap must be an integer")
			return
		}
		req.Overlap = &n
	}

	s.logger.Debug("upload request",
		zap.String("file_name", req.FileName),
		zap.Int("bytes", len(content)),
		zap.String("strategy", req.Strategy),
		zap.String("chunk_size", r.FormValue("chunk_size")))
	resp, err := s.deps.Documents.Ingest(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, "ingestion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	list, err := s.deps.Documents.Documents(r.Context(), offset, limit)
	if err != nil {
		s.respondServiceError(w, "list documents failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	detail, err := s.deps.Documents.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, "get document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "welcome to the document ingestion and RAG API",
		"version": s.deps.Version,
		"status":  "running",
		"endpoints": map[string]string{
			"document_ingestion": "/api/v1/documents",
			"chat":               "/api/v1/chat",
			"booking":            "/api/v1/bookings",
			"status":             "/api/v1/status",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cache := "memory"
	if s.config.Session.RedisURL != "" {
		cache = "redis"
	}
	llmStatus := "unavailable"
	if s.deps.LLMModel != "" {
		llmStatus = s.deps.LLMModel
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"services": map[string]string{
			"api":       "running",
			"database":  "sqlite",
			"vector_db": s.config.Vector.Backend,
			"cache":     cache,
			"llm":       llmStatus,
		},
		"config": map[string]interface{}{
			"vector_backend":       s.config.Vector.Backend,
			"collection":           s.config.Vector.Collection,
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
		},
	})
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Documents      int64         `json:"documents"`
	Chunks         int64         `json:"chunks"`
	Bookings       int64         `json:"bookings"`
	Vectors        int           `json:"vectors"`
	DiskUsageBytes *int64        `json:"disk_usage_bytes,omitempty"`
	WatchDirs      []string      `json:"watch_directories,omitempty"`
	Config         *StatusConfig `json:"config,omitempty"`
}

// StatusConfig is the configuration summary reported by status.
type StatusConfig struct {
	VectorBackend       string `json:"vector_backend"`
	Collection          string `json:"collection"`
	EmbeddingProvider   string `json:"embedding_provider"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	LLMModel            string `json:"llm_model,omitempty"`
	ChunkStrategy       string `json:"chunk_strategy"`
	ChunkSize           int    `json:"chunk_size"`
	TopK                int    `json:"top_k"`
	DatabasePath        string `json:"database_path,omitempty"`
	VectorIndexPath     string `json:"vector_index_path,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Status(r.Context())
	if err != nil {
		s.respondServiceError(w, "status failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// Status collects record counts, the vector count, disk usage and a configuration summary.
// A missing vector collection counts as zero vectors.
func (s *Server) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	var err error
	if resp.Documents, err = s.deps.Stats.CountDocuments(ctx); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if resp.Chunks, err = s.deps.Stats.CountChunks(ctx); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	if resp.Bookings, err = s.deps.Stats.CountBookings(ctx); err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	if s.deps.Vectors != nil {
		n, err := s.deps.Vectors.Count(ctx, s.config.Vector.Collection)
		switch {
		case errors.Is(err, vector.ErrCollectionNotFound):
		case err != nil:
			return nil, fmt.Errorf("%w: count vectors: %w", models.ErrUpstream, err)
		default:
			resp.Vectors = n
		}
	}
	if s.deps.Watch != nil {
		resp.WatchDirs = s.deps.Watch.Directories()
	}

	cfg := s.config
	paths := storage.DatabaseFiles(cfg.Storage.DatabasePath)
	indexPath := ""
	if cfg.Vector.Backend == string(vector.BackendMemory) {
		indexPath = cfg.Storage.VectorIndexPath
		paths = append(paths, indexPath)
	}
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp.DiskUsageBytes = &diskBytes
	} else {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	resp.Config = &StatusConfig{
		VectorBackend:       cfg.Vector.Backend,
		Collection:          cfg.Vector.Collection,
		EmbeddingProvider:   cfg.Embedding.Provider,
		EmbeddingDimensions: cfg.Embedding.Dimensions,
		LLMModel:            s.deps.LLMModel,
		ChunkStrategy:       cfg.Chunking.DefaultStrategy,
		ChunkSize:           cfg.Chunking.DefaultChunkSize,
		TopK:                cfg.Retrieval.TopK,
		DatabasePath:        cfg.Storage.DatabasePath,
		VectorIndexPath:     indexPath,
	}
	return &resp, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, llm.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
