// Package indexer provides document chunking and the ingestion pipeline.
package indexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits text into chunks using a sentence or fixed-window strategy.
// Sizes are measured in characters (Unicode code points).
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker with the given size and overlap.
// For the sentence strategy, overlap/5 trailing words of a chunk are carried into the next one;
// for the fixed strategy, overlap is the number of shared characters between neighbouring windows.
func NewChunker(chunkSize, overlap int) *Chunker {
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Chunk is shorthand for NewChunker(chunkSize, overlap).Chunk(text, strategy).
func Chunk(text string, strategy models.Strategy, chunkSize, overlap int) ([]models.Chunk, error) {
	return NewChunker(chunkSize, overlap).Chunk(text, strategy)
}

// Chunk splits text with the given strategy. Blank text yields no chunks and no error.
// Returns an error wrapping models.ErrInvalidArgument for an unknown strategy or invalid sizes.
func (c *Chunker) Chunk(text string, strategy models.Strategy) ([]models.Chunk, error) {
	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidArgument, c.chunkSize)
	}
	if c.overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", models.ErrInvalidArgument, c.overlap)
	}
	if c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", models.ErrInvalidArgument, c.overlap, c.chunkSize)
	}
	switch strategy {
	case models.StrategySentence:
		return c.chunkSentences(text), nil
	case models.StrategyFixed:
		return c.chunkFixed(text), nil
	default:
		return nil, fmt.Errorf("%w: unsupported chunking strategy %q", models.ErrInvalidArgument, strategy)
	}
}

func (c *Chunker) chunkSentences(text string) []models.Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	var chunks []models.Chunk
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		chunks = append(chunks, models.Chunk{
			Text:      s,
			Index:     len(chunks),
			Strategy:  models.StrategySentence,
			CharCount: utf8.RuneCountInString(s),
		})
	}

	current := ""
	for _, sentence := range sentences {
		if current == "" {
			current = sentence
			continue
		}
		if runeLen(current)+1+runeLen(sentence) <= c.chunkSize {
			current += " " + sentence
			continue
		}
		emit(current)
		current = c.seedWithOverlap(current, sentence)
	}
	emit(current)
	return chunks
}

// seedWithOverlap starts a new buffer with the trailing overlap/5 words of prev followed by sentence.
// Leading overlap words are dropped while the buffer would exceed the chunk size.
func (c *Chunker) seedWithOverlap(prev, sentence string) string {
	words := strings.Fields(prev)
	n := c.overlap / 5
	if len(words) <= 5 || n == 0 {
		return sentence
	}
	if n > len(words) {
		n = len(words)
	}
	tail := words[len(words)-n:]
	for len(tail) > 0 {
		seeded := strings.Join(tail, " ") + " " + sentence
		if runeLen(seeded) <= c.chunkSize {
			return seeded
		}
		tail = tail[1:]
	}
	return sentence
}

func (c *Chunker) chunkFixed(text string) []models.Chunk {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	step := c.chunkSize - c.overlap
	var chunks []models.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		s := strings.TrimSpace(string(runes[start:end]))
		if s == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Text:      s,
			Index:     len(chunks),
			Strategy:  models.StrategyFixed,
			CharCount: utf8.RuneCountInString(s),
		})
	}
	return chunks
}

// SplitSentences splits trimmed text after '.', '!' or '?' when followed by whitespace.
// The punctuation stays with its sentence and the whitespace run is dropped.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if !isSentenceEnd(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
