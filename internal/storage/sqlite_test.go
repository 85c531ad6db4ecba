package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument(id string) (*models.Document, []*models.ChunkMeta) {
	doc := &models.Document{
		ID:         id,
		FileName:   "notes.txt",
		FileType:   ".txt",
		UploadTime: time.Now().UTC(),
		ChunkCount: 2,
		Strategy:   models.StrategySentence,
		ChunkSize:  500,
	}
	chunks := []*models.ChunkMeta{
		{ChunkID: models.ChunkID(id, 0), DocumentID: id, ChunkIndex: 0, Text: "first", CharCount: 5},
		{ChunkID: models.ChunkID(id, 1), DocumentID: id, ChunkIndex: 1, Text: "second", CharCount: 6},
	}
	return doc, chunks
}

func TestSQLiteStorage_Documents(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc, chunks := testDocument("abc123def456")
	if err := store.SaveDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetDocument(ctx, "abc123def456")
	if err != nil {
		t.Fatal(err)
	}
	if got.FileName != "notes.txt" || got.ChunkCount != 2 || got.Strategy != models.StrategySentence {
		t.Errorf("got %+v", got)
	}

	list, err := store.GetChunksByDocumentID(ctx, "abc123def456")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Text != "first" || list[1].ChunkIndex != 1 {
		t.Errorf("chunks = %+v", list)
	}

	docs, err := store.ListDocuments(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 doc, got %d", len(docs))
	}

	if err := store.DeleteDocument(ctx, "abc123def456"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "abc123def456"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("chunks should be removed with the document, got %d", n)
	}
}

func TestSQLiteStorage_SaveDocumentRollsBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc, chunks := testDocument("dup000000001")
	chunks[1].ChunkID = chunks[0].ChunkID
	if err := store.SaveDocument(ctx, doc, chunks); err == nil {
		t.Fatal("expected duplicate chunk id to fail")
	}
	if n, _ := store.CountDocuments(ctx); n != 0 {
		t.Errorf("document row should be rolled back, got %d", n)
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("chunk rows should be rolled back, got %d", n)
	}
}

func TestSQLiteStorage_GetDocumentBySourcePath(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc, chunks := testDocument("src000000001")
	doc.SourcePath = "/inbox/notes.txt"
	doc.SourceMtime = 1700000000123456789
	doc.SourceSize = 42
	if err := store.SaveDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetDocumentBySourcePath(ctx, "/inbox/notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceMtime != 1700000000123456789 || got.SourceSize != 42 {
		t.Errorf("source metadata not preserved: %+v", got)
	}
	if _, err := store.GetDocumentBySourcePath(ctx, "/inbox/other.txt"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_Bookings(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	first := &models.Booking{Name: "Ana Lima", Email: "ana@example.com", Date: "2025-03-01", Time: "09:30"}
	if err := store.CreateBooking(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.ID == 0 || first.CreatedAt.IsZero() {
		t.Errorf("id and created_at should be set: %+v", first)
	}
	second := &models.Booking{Name: "Ben Ito", Email: "ben@example.com", Date: "2025-03-02", Time: "14:00"}
	if err := store.CreateBooking(ctx, second); err != nil {
		t.Fatal(err)
	}
	if second.ID <= first.ID {
		t.Errorf("ids should increase: %d then %d", first.ID, second.ID)
	}

	got, err := store.GetBooking(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != "ana@example.com" || got.Date != "2025-03-01" || got.Time != "09:30" {
		t.Errorf("got %+v", got)
	}
	if _, err := store.GetBooking(ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	all, err := store.ListBookings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Errorf("expected newest first, got %+v", all)
	}
	byEmail, err := store.ListBookingsByEmail(ctx, "ben@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(byEmail) != 1 || byEmail[0].Name != "Ben Ito" {
		t.Errorf("by email = %+v", byEmail)
	}
	if n, _ := store.CountBookings(ctx); n != 2 {
		t.Errorf("CountBookings = %d, want 2", n)
	}
}

func TestSQLiteStorage_CreateBookingCanceledContext(t *testing.T) {
	store := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.CreateBooking(ctx, &models.Booking{Name: "Ana", Email: "a@b.co", Date: "2025-03-01", Time: "09:30"}); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if n, _ := store.CountBookings(context.Background()); n != 0 {
		t.Errorf("no row should be committed, got %d", n)
	}
}

func TestSQLiteStorage_Counts(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	doc, chunks := testDocument("cnt000000001")
	if err := store.SaveDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}
	nd, err := store.CountDocuments(ctx)
	if err != nil || nd != 1 {
		t.Errorf("CountDocuments = %d, %v", nd, err)
	}
	nc, err := store.CountChunks(ctx)
	if err != nil || nc != 2 {
		t.Errorf("CountChunks = %d, %v", nc, err)
	}
}
