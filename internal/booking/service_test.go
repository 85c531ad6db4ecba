package booking

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(store, nil), store
}

func ptr(s string) *string { return &s }

func fields(name, email, date, tm string) models.BookingFields {
	return models.BookingFields{Name: ptr(name), Email: ptr(email), Date: ptr(date), Time: ptr(tm)}
}

func TestCommit_Success(t *testing.T) {
	svc, store := newTestService(t)
	ok, msg := svc.Commit(context.Background(), fields("Ana Lima", "ana@example.com", "2025-06-01", "14:30"))
	if !ok {
		t.Fatalf("commit failed: %s", msg)
	}
	want := "Interview booked!\nName: Ana Lima\nEmail: ana@example.com\nDate: 2025-06-01\nTime: 14:30\nID: 1"
	if msg != want {
		t.Errorf("message = %q, want %q", msg, want)
	}
	if n, _ := store.CountBookings(context.Background()); n != 1 {
		t.Errorf("bookings = %d, want 1", n)
	}
}

func TestCommit_InvalidFormats(t *testing.T) {
	tests := []struct {
		name string
		f    models.BookingFields
		want string
	}{
		{"bad date", fields("Ana", "a@b.co", "06/01/2025", "14:30"), "Invalid date format. Use YYYY-MM-DD."},
		{"impossible date", fields("Ana", "a@b.co", "2025-02-30", "14:30"), "Invalid date format. Use YYYY-MM-DD."},
		{"bad time", fields("Ana", "a@b.co", "2025-06-01", "2pm"), "Invalid time format. Use HH:MM."},
		{"hour out of range", fields("Ana", "a@b.co", "2025-06-01", "25:00"), "Invalid time format. Use HH:MM."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			ok, msg := svc.Commit(context.Background(), tt.f)
			if ok || msg != tt.want {
				t.Errorf("Commit = %v, %q; want false, %q", ok, msg, tt.want)
			}
			if n, _ := store.CountBookings(context.Background()); n != 0 {
				t.Errorf("nothing should be persisted, got %d rows", n)
			}
		})
	}
}

type failingStore struct {
	storage.BookingStore
}

func (failingStore) CreateBooking(context.Context, *models.Booking) error {
	return errors.New("disk full")
}

func TestCommit_StoreFailure(t *testing.T) {
	svc := NewService(failingStore{}, nil)
	ok, msg := svc.Commit(context.Background(), fields("Ana", "a@b.co", "2025-06-01", "14:30"))
	if ok || msg != "Failed to book: disk full" {
		t.Errorf("Commit = %v, %q", ok, msg)
	}
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, models.BookingRequest{Name: " Bo Chen ", Email: "bo@x.io", Date: "2025-07-02", Time: "09:00"})
	if err != nil {
		t.Fatal(err)
	}
	if b.ID == 0 || b.Name != "Bo Chen" || b.CreatedAt.IsZero() {
		t.Errorf("booking = %+v", b)
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != "bo@x.io" || got.Date != "2025-07-02" {
		t.Errorf("Get = %+v", got)
	}
	if _, err := svc.Get(ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing booking error = %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	for _, req := range []models.BookingRequest{
		{Name: "A", Email: "a@b.co", Date: "2025-01-01", Time: "10:00"},
		{Name: strings.Repeat("x", 101), Email: "a@b.co", Date: "2025-01-01", Time: "10:00"},
		{Name: "Ana", Email: "not-an-email", Date: "2025-01-01", Time: "10:00"},
		{Name: "Ana", Email: "a@b.co", Date: "2025-1-1", Time: "10:00"},
		{Name: "Ana", Email: "a@b.co", Date: "2025-01-01", Time: "10"},
	} {
		if _, err := svc.Create(context.Background(), req); !errors.Is(err, models.ErrInvalidArgument) {
			t.Errorf("Create(%+v) error = %v, want invalid argument", req, err)
		}
	}
}

func TestList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, email := range []string{"a@x.io", "b@x.io", "a@x.io"} {
		if _, err := svc.Create(ctx, models.BookingRequest{Name: "Someone", Email: email, Date: "2025-01-01", Time: "10:00"}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID < all[2].ID {
		t.Errorf("expected 3 bookings newest first, got %d", len(all))
	}
	mine, err := svc.List(ctx, "a@x.io")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("filtered bookings = %d, want 2", len(mine))
	}
}
