package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
)

type fakeClassifier struct {
	intent    models.Intent
	extracted models.BookingFields
	extracts  int
}

func (f *fakeClassifier) Classify(ctx context.Context, query string) models.Intent { return f.intent }

func (f *fakeClassifier) ExtractFields(ctx context.Context, query string) (models.BookingFields, bool) {
	f.extracts++
	return f.extracted, f.extracted.Complete()
}

type fakeRetriever struct {
	hits []models.RetrievalHit
	err  error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) (string, []models.RetrievalHit, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return "CONTEXT", f.hits, nil
}

type fakeAnswerer struct {
	histories []string
	err       error
	panics    bool
}

func (f *fakeAnswerer) Synthesize(ctx context.Context, query, docContext, history string) (string, error) {
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return "", f.err
	}
	f.histories = append(f.histories, history)
	return "answer to " + query, nil
}

type fakeBooker struct {
	committed []models.BookingFields
}

func (f *fakeBooker) Commit(ctx context.Context, fields models.BookingFields) (bool, string) {
	f.committed = append(f.committed, fields)
	return true, "booked"
}

type harness struct {
	orch       *Orchestrator
	sessions   *session.MemoryStore
	classifier *fakeClassifier
	retriever  *fakeRetriever
	answerer   *fakeAnswerer
	booker     *fakeBooker
}

func newHarness() *harness {
	h := &harness{
		sessions:   session.NewMemoryStore(session.Options{MaxHistory: 20, TTL: time.Hour}),
		classifier: &fakeClassifier{intent: models.DefaultIntent()},
		retriever:  &fakeRetriever{},
		answerer:   &fakeAnswerer{},
		booker:     &fakeBooker{},
	}
	h.orch = NewOrchestrator(h.sessions, h.classifier, h.retriever, h.answerer, h.booker,
		Config{TopK: 3, ContextTurns: 5, PreviewChars: 10}, nil)
	return h
}

func ptr(s string) *string { return &s }

func TestHandleTurn_AnswerPath(t *testing.T) {
	h := newHarness()
	h.retriever.hits = []models.RetrievalHit{{Text: "0123456789abcdef", Score: 0.9}, {Text: "short", Score: 0.5}}
	ctx := context.Background()

	resp, err := h.orch.HandleTurn(ctx, "s1", "  what is kotae?  ")
	if err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "s1" || resp.Query != "what is kotae?" || resp.Answer != "answer to what is kotae?" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Sources) != 2 || resp.Sources[0] != "0123456789..." || resp.Sources[1] != "short" {
		t.Errorf("sources = %q", resp.Sources)
	}
	if h.answerer.histories[0] != "" {
		t.Errorf("first turn should have no history, got %q", h.answerer.histories[0])
	}

	if _, err := h.orch.HandleTurn(ctx, "s1", "and then?"); err != nil {
		t.Fatal(err)
	}
	want := "Previous conversation:\nUser: what is kotae?\nAssistant: answer to what is kotae?\n"
	if h.answerer.histories[1] != want {
		t.Errorf("history = %q, want %q", h.answerer.histories[1], want)
	}

	turns, _ := h.sessions.Read(ctx, "s1")
	if len(turns) != 4 || turns[0].Role != models.RoleUser || turns[1].Role != models.RoleAssistant {
		t.Errorf("stored turns = %+v", turns)
	}
}

func TestHandleTurn_NewSessionID(t *testing.T) {
	h := newHarness()
	resp, err := h.orch.HandleTurn(context.Background(), "", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Errorf("session id %q is not a uuid", resp.SessionID)
	}
}

func TestHandleTurn_EmptyQuery(t *testing.T) {
	h := newHarness()
	if _, err := h.orch.HandleTurn(context.Background(), "s", "   "); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("error = %v, want invalid argument", err)
	}
}

func TestHandleTurn_BookingFromClassification(t *testing.T) {
	h := newHarness()
	h.classifier.intent = models.Intent{
		Kind: models.IntentBookInterview,
		BookingFields: models.BookingFields{
			Name: ptr("Ana"), Email: ptr("a@b.co"), Date: ptr("2025-01-01"), Time: ptr("10:00"),
		},
	}
	resp, err := h.orch.HandleTurn(context.Background(), "s", "book me")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "booked" || len(resp.Sources) != 0 || resp.Sources == nil {
		t.Errorf("response = %+v", resp)
	}
	if h.classifier.extracts != 0 {
		t.Error("complete classification should not trigger extraction")
	}
	if len(h.booker.committed) != 1 {
		t.Errorf("commits = %d", len(h.booker.committed))
	}
}

func TestHandleTurn_BookingMergesExtraction(t *testing.T) {
	h := newHarness()
	h.classifier.intent = models.Intent{
		Kind:          models.IntentBookInterview,
		BookingFields: models.BookingFields{Name: ptr("Ana"), Email: ptr("a@b.co")},
	}
	h.classifier.extracted = models.BookingFields{Date: ptr("2025-01-01"), Time: ptr("10:00")}
	if _, err := h.orch.HandleTurn(context.Background(), "s", "book Ana"); err != nil {
		t.Fatal(err)
	}
	if len(h.booker.committed) != 1 {
		t.Fatalf("commits = %d", len(h.booker.committed))
	}
	got := h.booker.committed[0]
	if *got.Name != "Ana" || *got.Date != "2025-01-01" || *got.Time != "10:00" {
		t.Errorf("merged fields = %+v", got)
	}
}

func TestHandleTurn_BookingMissingFields(t *testing.T) {
	h := newHarness()
	h.classifier.intent = models.Intent{
		Kind:          models.IntentBookInterview,
		BookingFields: models.BookingFields{Name: ptr("Ana")},
	}
	h.classifier.extracted = models.BookingFields{Time: ptr("10:00")}
	resp, err := h.orch.HandleTurn(context.Background(), "s", "I want an interview")
	if err != nil {
		t.Fatal(err)
	}
	want := "Provide the following info to book interview:\n• email\n• date"
	if resp.Answer != want {
		t.Errorf("answer = %q, want %q", resp.Answer, want)
	}
	if len(h.booker.committed) != 0 {
		t.Error("incomplete fields must not be committed")
	}
}

func TestHandleTurn_NotInitializedIsFatal(t *testing.T) {
	h := newHarness()
	h.answerer.err = llm.ErrNotInitialized
	_, err := h.orch.HandleTurn(context.Background(), "s", "question")
	if !errors.Is(err, llm.ErrNotInitialized) {
		t.Errorf("error = %v", err)
	}
	if turns, _ := h.sessions.Read(context.Background(), "s"); len(turns) != 0 {
		t.Errorf("failed turns must not be stored, got %+v", turns)
	}
}

func TestHandleTurn_RetrieverError(t *testing.T) {
	h := newHarness()
	h.retriever.err = models.ErrUpstream
	if _, err := h.orch.HandleTurn(context.Background(), "s", "q"); !errors.Is(err, models.ErrUpstream) {
		t.Errorf("error = %v", err)
	}
}

func TestHandleTurn_RecoversPanic(t *testing.T) {
	h := newHarness()
	h.answerer.panics = true
	resp, err := h.orch.HandleTurn(context.Background(), "s", "q")
	if err == nil || resp != nil {
		t.Fatalf("expected error from panic, got %+v, %v", resp, err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v", err)
	}

	h.answerer.panics = false
	if _, err := h.orch.HandleTurn(context.Background(), "s", "q"); err != nil {
		t.Errorf("next turn should succeed, got %v", err)
	}
}

func TestHistoryAndClear(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	if _, err := h.orch.HandleTurn(ctx, "s", "hi"); err != nil {
		t.Fatal(err)
	}
	hist, err := h.orch.History(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if hist.TotalMessages != 2 || hist.Messages[1].Message != "answer to hi" {
		t.Errorf("history = %+v", hist)
	}

	if err := h.orch.ClearHistory(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	hist, _ = h.orch.History(ctx, "s")
	if hist.TotalMessages != 0 || hist.Messages == nil {
		t.Errorf("cleared history = %+v", hist)
	}
	if _, err := h.orch.History(ctx, ""); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("empty session id error = %v", err)
	}
}

func TestMissingFieldsMessage(t *testing.T) {
	got := MissingFieldsMessage([]string{"name", "email", "date", "time"})
	want := "Provide the following info to book interview:\n• name\n• email\n• date\n• time"
	if got != want {
		t.Errorf("got %q", got)
	}
}
