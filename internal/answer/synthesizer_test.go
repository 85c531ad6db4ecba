package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/llm"
)

func TestIsBookingQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"Can I BOOK a slot?", true},
		{"I'd like an Interview", true},
		{"what is your schedule", true},
		{"make an appointment", true},
		{"what is the refund policy", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsBookingQuery(tt.query); got != tt.want {
			t.Errorf("IsBookingQuery(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSynthesize_BookingShortCircuit(t *testing.T) {
	called := false
	client := llm.Func(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		called = true
		return "", nil
	})
	out, err := NewSynthesizer(client, nil).Synthesize(context.Background(), "How do I schedule a call?", "ctx", "")
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("completion model should not be called for booking queries")
	}
	if out != BookingInstructions || !strings.Contains(out, "POST /api/v1/bookings") {
		t.Errorf("unexpected booking text %q", out)
	}
}

func TestSynthesize_PromptAndOptions(t *testing.T) {
	var gotPrompt string
	var gotOpts llm.Options
	client := llm.Func(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		gotPrompt, gotOpts = prompt, opts
		return "  Paris.  ", nil
	})
	history := "Previous conversation:\nUser: hi\n"
	out, err := NewSynthesizer(client, nil).Synthesize(context.Background(), "capital of France?", "[Source 1] (Relevance: 0.90)\nParis is the capital.", history)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Paris." {
		t.Errorf("answer = %q", out)
	}
	if gotOpts.MaxTokens != 500 || gotOpts.Temperature != 0.7 {
		t.Errorf("options = %+v", gotOpts)
	}
	for _, want := range []string{
		"Context from documents:\n[Source 1]",
		history,
		"Current question: capital of France?\n",
		"guide them to use the booking API",
	} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestBuildPrompt_NoHistoryBlock(t *testing.T) {
	p := BuildPrompt("q", "c", "")
	if strings.Contains(p, "Previous conversation") {
		t.Error("empty history should not add a history block")
	}
}

func TestSynthesize_NotInitialized(t *testing.T) {
	_, err := NewSynthesizer(llm.Unavailable{}, nil).Synthesize(context.Background(), "what is X?", "c", "")
	if !errors.Is(err, llm.ErrNotInitialized) {
		t.Errorf("error = %v, want ErrNotInitialized", err)
	}
}
