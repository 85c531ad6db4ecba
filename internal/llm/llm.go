// Package llm provides the completion model used to answer questions and classify intent.
package llm

import (
	"context"
	"errors"
)

// ErrNotInitialized is returned by every call when no API credential is configured.
var ErrNotInitialized = errors.New("LLM client is not initialized")

// Options controls a single completion.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Client produces a completion for a single user prompt.
type Client interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	Model() string
}

// Func adapts a function to Client. Useful for scripted clients in tests.
type Func func(ctx context.Context, prompt string, opts Options) (string, error)

func (f Func) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

func (f Func) Model() string { return "func" }

// Unavailable is the client used when no credential is configured.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, string, Options) (string, error) {
	return "", ErrNotInitialized
}

func (Unavailable) Model() string { return "" }
