// Package intent classifies chat queries and pulls booking details out of free text.
package intent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

const classifyPrompt = `Analyze this message and return ONLY JSON:
{
"intent": "book_interview" or "ask_question",
"name": "full name or null",
"email": "email or null",
"date": "YYYY-MM-DD or null",
"time": "HH:MM or null"
}
Message: "%s"`

const extractPrompt = `Extract JSON with name, email, date (YYYY-MM-DD), time (HH:MM) from: "%s"`

var (
	classifyOptions = llm.Options{MaxTokens: 200, Temperature: 0.3}
	extractOptions  = llm.Options{MaxTokens: 150, Temperature: 0.1}
)

// Extractor asks the completion model for structured intent and booking fields.
// Model output is untrusted: anything that does not validate degrades to a default.
type Extractor struct {
	client llm.Client
	logger *zap.Logger
}

// NewExtractor creates an extractor. A nil logger is replaced by a no-op logger.
func NewExtractor(client llm.Client, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, logger: logger}
}

// Classify returns the query's intent and any booking fields it mentions.
// It never fails: completion or parse errors yield models.DefaultIntent().
func (e *Extractor) Classify(ctx context.Context, query string) models.Intent {
	out, err := e.client.Complete(ctx, fmt.Sprintf(classifyPrompt, query), classifyOptions)
	if err != nil {
		e.logger.Debug("intent classification failed", zap.Error(err))
		return models.DefaultIntent()
	}
	in, err := ParseIntent(out)
	if err != nil {
		e.logger.Debug("intent response rejected", zap.Error(err), zap.String("response", out))
		return models.DefaultIntent()
	}
	return in
}

// ExtractFields runs the narrower extraction prompt. ok is false unless all four fields are present.
func (e *Extractor) ExtractFields(ctx context.Context, query string) (models.BookingFields, bool) {
	out, err := e.client.Complete(ctx, fmt.Sprintf(extractPrompt, query), extractOptions)
	if err != nil {
		e.logger.Debug("booking extraction failed", zap.Error(err))
		return models.BookingFields{}, false
	}
	fields, err := ParseFields(out)
	if err != nil {
		e.logger.Debug("booking extraction response rejected", zap.Error(err), zap.String("response", out))
		return models.BookingFields{}, false
	}
	return fields, fields.Complete()
}

// ParseIntent decodes the first JSON object in s and validates it as an intent.
func ParseIntent(s string) (models.Intent, error) {
	obj, err := firstObject(s)
	if err != nil {
		return models.Intent{}, err
	}
	raw, ok := obj["intent"].(string)
	if !ok {
		return models.Intent{}, fmt.Errorf("intent missing or not a string")
	}
	kind := models.IntentKind(strings.TrimSpace(raw))
	if !kind.Valid() {
		return models.Intent{}, fmt.Errorf("unknown intent %q", raw)
	}
	fields, err := fieldsFrom(obj)
	if err != nil {
		return models.Intent{}, err
	}
	return models.Intent{Kind: kind, BookingFields: fields}, nil
}

// ParseFields decodes the first JSON object in s and validates its booking fields.
func ParseFields(s string) (models.BookingFields, error) {
	obj, err := firstObject(s)
	if err != nil {
		return models.BookingFields{}, err
	}
	return fieldsFrom(obj)
}

func fieldsFrom(obj map[string]any) (models.BookingFields, error) {
	var f models.BookingFields
	for _, key := range []struct {
		name string
		dst  **string
	}{
		{"name", &f.Name},
		{"email", &f.Email},
		{"date", &f.Date},
		{"time", &f.Time},
	} {
		v, err := optionalString(obj, key.name)
		if err != nil {
			return models.BookingFields{}, err
		}
		*key.dst = v
	}
	return f, nil
}

// optionalString accepts a string or null. "", "null" and "none" count as absent.
func optionalString(obj map[string]any, key string) (*string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("field %q must be a string or null, got %T", key, v)
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none":
		return nil, nil
	}
	return &s, nil
}
