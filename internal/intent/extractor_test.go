package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

func reply(s string) llm.Client {
	return llm.Func(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		return s, nil
	})
}

func str(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantKey string
		wantErr bool
	}{
		{"plain", `{"a":"1"}`, "a", false},
		{"prose around", "Sure! Here you go:\n{\"a\":\"1\"}\nHope that helps {not json}", "a", false},
		{"nested braces", `{"a":{"b":"c"}} trailing`, "a", false},
		{"skips broken candidate", `{broken {"a":"1"}`, "a", false},
		{"code fence", "```json\n{\"a\":\"1\"}\n```", "a", false},
		{"none", "no json here", "", true},
		{"unterminated", `{"a":"1"`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := firstObject(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", obj)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := obj[tt.wantKey]; !ok {
				t.Errorf("object %v missing key %q", obj, tt.wantKey)
			}
		})
	}
}

func TestParseIntent(t *testing.T) {
	in, err := ParseIntent(`{"intent":"book_interview","name":"Ana Lima","email":"ana@example.com","date":"null","time":""}`)
	if err != nil {
		t.Fatal(err)
	}
	if in.Kind != models.IntentBookInterview {
		t.Errorf("kind = %s", in.Kind)
	}
	if str(in.Name) != "Ana Lima" || str(in.Email) != "ana@example.com" {
		t.Errorf("fields = %s %s", str(in.Name), str(in.Email))
	}
	if in.Date != nil || in.Time != nil {
		t.Errorf("\"null\" and \"\" should normalise to nil, got %s %s", str(in.Date), str(in.Time))
	}
}

func TestParseIntent_Rejects(t *testing.T) {
	for _, s := range []string{
		`{"intent":"order_pizza"}`,
		`{"name":"x"}`,
		`{"intent":"ask_question","name":42}`,
		`{"intent":"ask_question","date":["2025-01-01"]}`,
		`nothing`,
	} {
		if _, err := ParseIntent(s); err == nil {
			t.Errorf("ParseIntent(%s) should fail", s)
		}
	}
}

func TestClassify_DefaultsOnFailure(t *testing.T) {
	failing := llm.Func(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		return "", errors.New("boom")
	})
	for name, c := range map[string]llm.Client{
		"completion error": failing,
		"not initialized":  llm.Unavailable{},
		"garbage":          reply("I think they want to book"),
		"bad intent":       reply(`{"intent":"other"}`),
	} {
		t.Run(name, func(t *testing.T) {
			got := NewExtractor(c, nil).Classify(context.Background(), "q")
			if got != models.DefaultIntent() {
				t.Errorf("Classify = %+v, want default", got)
			}
		})
	}
}

func TestClassify_PromptAndOptions(t *testing.T) {
	var gotPrompt string
	var gotOpts llm.Options
	c := llm.Func(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		gotPrompt, gotOpts = prompt, opts
		return `{"intent":"ask_question","name":null,"email":null,"date":null,"time":null}`, nil
	})
	got := NewExtractor(c, nil).Classify(context.Background(), "what is kotae?")
	if got.Kind != models.IntentAskQuestion {
		t.Errorf("kind = %s", got.Kind)
	}
	if gotOpts.MaxTokens != 200 || gotOpts.Temperature != 0.3 {
		t.Errorf("options = %+v", gotOpts)
	}
	if !strings.Contains(gotPrompt, `Message: "what is kotae?"`) {
		t.Errorf("prompt = %q", gotPrompt)
	}
}

func TestExtractFields(t *testing.T) {
	var gotOpts llm.Options
	c := llm.Func(func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
		gotOpts = opts
		return `{"name":"Bo","email":"bo@x.io","date":"2025-03-01","time":"09:30"}`, nil
	})
	f, ok := NewExtractor(c, nil).ExtractFields(context.Background(), "Bo, bo@x.io, March 1 at 9:30")
	if !ok {
		t.Fatal("expected complete extraction")
	}
	if str(f.Date) != "2025-03-01" || str(f.Time) != "09:30" {
		t.Errorf("fields = %s %s", str(f.Date), str(f.Time))
	}
	if gotOpts.MaxTokens != 150 || gotOpts.Temperature != 0.1 {
		t.Errorf("options = %+v", gotOpts)
	}

	f, ok = NewExtractor(reply(`{"name":"Bo","email":"none"}`), nil).ExtractFields(context.Background(), "q")
	if ok {
		t.Error("incomplete extraction should not be ok")
	}
	if str(f.Name) != "Bo" || f.Email != nil {
		t.Errorf("partial fields = %+v", f)
	}
}
