// Package session stores per-session chat history with a length cap and an idle TTL.
package session

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// Store keeps the most recent turns of each session. Every Append trims the session to the
// newest MaxHistory turns and refreshes its TTL. Sessions are independent of each other.
type Store interface {
	Append(ctx context.Context, sessionID string, turn models.Turn) error
	// Read returns the stored turns oldest first; an unknown or expired session has none.
	Read(ctx context.Context, sessionID string) ([]models.Turn, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Options bounds a session's history.
type Options struct {
	MaxHistory int
	TTL        time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxHistory <= 0 {
		o.MaxHistory = 20
	}
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	return o
}

const contextHeader = "Previous conversation:\n"

// FormatContext renders the last n turns as "Role: message" lines after a header.
// It returns "" when there are no turns.
func FormatContext(turns []models.Turn, n int) string {
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(contextHeader)
	for _, t := range turns {
		b.WriteString(capitalize(string(t.Role)))
		b.WriteString(": ")
		b.WriteString(t.Message)
		b.WriteString("\n")
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
