// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// ChatService runs conversation turns and manages session history.
type ChatService interface {
	HandleTurn(ctx context.Context, sessionID, query string) (*models.ChatResponse, error)
	History(ctx context.Context, sessionID string) (*models.HistoryResponse, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// BookingService stores and lists interview bookings.
type BookingService interface {
	Create(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	List(ctx context.Context, email string) ([]*models.Booking, error)
	Get(ctx context.Context, id int64) (*models.Booking, error)
}

// DocumentService ingests uploads and lists ingested documents.
type DocumentService interface {
	Ingest(ctx context.Context, req indexer.IngestRequest) (*models.IngestResponse, error)
	Documents(ctx context.Context, offset, limit int) (*models.DocumentList, error)
	Document(ctx context.Context, id string) (*models.DocumentDetail, error)
}

// Stats counts stored records for the status endpoint.
type Stats interface {
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
	CountBookings(ctx context.Context) (int64, error)
}

// DirectoryLister reports the watched inbox directories.
type DirectoryLister interface {
	Directories() []string
}

// Deps are the services behind the API. Watch may be nil when no inbox is configured.
type Deps struct {
	Chat      ChatService
	Bookings  BookingService
	Documents DocumentService
	Stats     Stats
	Vectors   vector.Index
	Watch     DirectoryLister
	LLMModel  string
	Version   string
}

// Server is the HTTP server for the kotae API.
type Server struct {
	deps    Deps
	config  *config.Config
	logger  *zap.Logger
	handler http.Handler
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:   deps,
		config: cfg,
		logger: logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/chat", s.handleChat)
		r.Get("/chat/history/{session_id}", s.handleHistory)
		r.Delete("/chat/history/{session_id}", s.handleClearHistory)

		r.Post("/bookings", s.handleCreateBooking)
		r.Get("/bookings", s.handleListBookings)
		r.Get("/bookings/{id}", s.handleGetBooking)

		r.Post("/documents/upload", s.handleUpload)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
	})
	return r
}

// accessLog logs one line per request with zap.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
