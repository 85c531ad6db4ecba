// Package chat runs one conversation turn: intent detection, booking or grounded answer, history.
package chat

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Classifier reads a query's intent and booking fields.
type Classifier interface {
	Classify(ctx context.Context, query string) models.Intent
	ExtractFields(ctx context.Context, query string) (models.BookingFields, bool)
}

// Retriever returns formatted document context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (string, []models.RetrievalHit, error)
}

// Answerer produces the final answer from context and history.
type Answerer interface {
	Synthesize(ctx context.Context, query, docContext, history string) (string, error)
}

// Booker commits extracted booking fields.
type Booker interface {
	Commit(ctx context.Context, fields models.BookingFields) (bool, string)
}

// Config holds the orchestrator's tunables.
type Config struct {
	TopK         int
	ContextTurns int
	PreviewChars int
}

// Orchestrator handles chat turns. It is safe for concurrent use; concurrent turns of the same
// session may interleave their history appends.
type Orchestrator struct {
	sessions   session.Store
	classifier Classifier
	retriever  Retriever
	answerer   Answerer
	booker     Booker
	cfg        Config
	logger     *zap.Logger
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(
	sessions session.Store,
	classifier Classifier,
	retriever Retriever,
	answerer Answerer,
	booker Booker,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 5
	}
	if cfg.PreviewChars <= 0 {
		cfg.PreviewChars = 150
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sessions:   sessions,
		classifier: classifier,
		retriever:  retriever,
		answerer:   answerer,
		booker:     booker,
		cfg:        cfg,
		logger:     logger,
	}
}

// HandleTurn answers one query. An empty sessionID starts a new session.
// A panic anywhere in the turn is recovered and returned as an error.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, query string) (resp *models.ChatResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("chat turn panicked",
				zap.String("session_id", sessionID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			resp, err = nil, fmt.Errorf("chat turn failed: %v", r)
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", models.ErrInvalidArgument)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	turns, err := o.sessions.Read(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	history := session.FormatContext(turns, o.cfg.ContextTurns)

	answer, sources, err := o.respond(ctx, query, history)
	if err != nil {
		return nil, err
	}

	for _, t := range []models.Turn{
		{Role: models.RoleUser, Message: query},
		{Role: models.RoleAssistant, Message: answer},
	} {
		if err := o.sessions.Append(ctx, sessionID, t); err != nil {
			o.logger.Warn("failed to store chat turn", zap.String("session_id", sessionID), zap.Error(err))
			break
		}
	}

	return &models.ChatResponse{
		SessionID: sessionID,
		Query:     query,
		Answer:    answer,
		Sources:   sources,
	}, nil
}

func (o *Orchestrator) respond(ctx context.Context, query, history string) (string, []string, error) {
	in := o.classifier.Classify(ctx, query)
	o.logger.Debug("classified query", zap.String("intent", string(in.Kind)))

	if in.Kind == models.IntentBookInterview {
		fields := in.BookingFields
		if !fields.Complete() {
			extracted, _ := o.classifier.ExtractFields(ctx, query)
			fields = fields.Merge(extracted)
		}
		if !fields.Complete() {
			return MissingFieldsMessage(fields.Missing()), []string{}, nil
		}
		_, msg := o.booker.Commit(ctx, fields)
		return msg, []string{}, nil
	}

	docContext, hits, err := o.retriever.Retrieve(ctx, query, o.cfg.TopK)
	if err != nil {
		return "", nil, err
	}
	answer, err := o.answerer.Synthesize(ctx, query, docContext, history)
	if err != nil {
		return "", nil, err
	}
	sources := make([]string, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, utils.Truncate(h.Text, o.cfg.PreviewChars))
	}
	return answer, sources, nil
}

// MissingFieldsMessage lists the booking fields the user still has to provide.
func MissingFieldsMessage(missing []string) string {
	var b strings.Builder
	b.WriteString("Provide the following info to book interview:\n")
	for i, m := range missing {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("• ")
		b.WriteString(m)
	}
	return b.String()
}

// History returns a session's stored turns.
func (o *Orchestrator) History(ctx context.Context, sessionID string) (*models.HistoryResponse, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id cannot be empty", models.ErrInvalidArgument)
	}
	turns, err := o.sessions.Read(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	return &models.HistoryResponse{
		SessionID:     sessionID,
		TotalMessages: len(turns),
		Messages:      turns,
	}, nil
}

// ClearHistory deletes a session's turns.
func (o *Orchestrator) ClearHistory(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id cannot be empty", models.ErrInvalidArgument)
	}
	if err := o.sessions.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}
