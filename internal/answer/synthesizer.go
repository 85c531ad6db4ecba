// Package answer composes the grounded prompt and asks the completion model for an answer.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
)

// BookingInstructions is returned without calling the model when a query mentions booking.
const BookingInstructions = "I can help you to book an interview. Please use the booking endpoint:\n\n" +
	"POST /api/v1/bookings\n\n" +
	"Provide:\n" +
	"- name: your full name\n" +
	"- email: your email address\n" +
	"- date: Preferred date (YYYY-MM-DD)\n" +
	"- time: Preferred time (HH:MM)\n" +
	"Or tell me your details and I'll help you format the request!"

var bookingKeywords = []string{"book", "interview", "schedule", "appointment"}

// completion settings for answers
var answerOptions = llm.Options{MaxTokens: 500, Temperature: 0.7}

// Synthesizer turns retrieved context and chat history into an answer.
type Synthesizer struct {
	client llm.Client
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer. A nil logger is replaced by a no-op logger.
func NewSynthesizer(client llm.Client, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{client: client, logger: logger}
}

// IsBookingQuery reports whether the query mentions any booking keyword, ignoring case.
func IsBookingQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range bookingKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// Synthesize answers query from docContext. history is the already formatted conversation block
// and may be empty. Completion errors, llm.ErrNotInitialized included, are returned wrapped.
func (s *Synthesizer) Synthesize(ctx context.Context, query, docContext, history string) (string, error) {
	if IsBookingQuery(query) {
		return BookingInstructions, nil
	}
	out, err := s.client.Complete(ctx, BuildPrompt(query, docContext, history), answerOptions)
	if err != nil {
		s.logger.Warn("answer completion failed", zap.Error(err))
		return "", fmt.Errorf("answer completion: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// BuildPrompt assembles the answer prompt. The history block is included only when non-empty.
func BuildPrompt(query, docContext, history string) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant answering questions based on provided documents.\n")
	b.WriteString("Context from documents:\n")
	b.WriteString(docContext)
	b.WriteString("\n")
	if history != "" {
		b.WriteString(history)
		b.WriteString("\n")
	}
	b.WriteString("Current question: ")
	b.WriteString(query)
	b.WriteString("\n")
	b.WriteString("Instruction: answer based only on provided context, if the context does not contain " +
		"relevant information, say sorry, be concise and helpful. " +
		"If asked about booking/scheduling, guide them to use the booking API.")
	return b.String()
}
