// Package booking validates and persists interview bookings.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

// Service books interviews from chat extraction and from the direct API.
type Service struct {
	store  storage.BookingStore
	logger *zap.Logger
}

// NewService creates a booking service over store.
func NewService(store storage.BookingStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Commit persists fields extracted from a chat turn. It reports success and a user-facing message;
// on any failure nothing is persisted.
func (s *Service) Commit(ctx context.Context, fields models.BookingFields) (bool, string) {
	b := &models.Booking{
		Name:  deref(fields.Name),
		Email: deref(fields.Email),
		Date:  deref(fields.Date),
		Time:  deref(fields.Time),
	}
	if _, err := time.Parse(models.DateLayout, b.Date); err != nil {
		return false, "Invalid date format. Use YYYY-MM-DD."
	}
	if _, err := time.Parse(models.TimeLayout, b.Time); err != nil {
		return false, "Invalid time format. Use HH:MM."
	}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		s.logger.Error("booking failed", zap.String("email", b.Email), zap.Error(err))
		return false, fmt.Sprintf("Failed to book: %v", err)
	}
	s.logger.Info("interview booked", zap.Int64("id", b.ID), zap.String("date", b.Date), zap.String("time", b.Time))
	return true, fmt.Sprintf("Interview booked!\nName: %s\nEmail: %s\nDate: %s\nTime: %s\nID: %d",
		b.Name, b.Email, b.Date, b.Time, b.ID)
}

// Create validates a direct booking request and stores it.
func (s *Service) Create(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b := &models.Booking{Name: req.Name, Email: req.Email, Date: req.Date, Time: req.Time}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	s.logger.Info("interview booked", zap.Int64("id", b.ID), zap.String("date", b.Date), zap.String("time", b.Time))
	return b, nil
}

// List returns bookings newest first, restricted to email when it is non-empty.
func (s *Service) List(ctx context.Context, email string) ([]*models.Booking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return s.store.ListBookings(ctx)
	}
	return s.store.ListBookingsByEmail(ctx, email)
}

// Get returns one booking; a missing id wraps models.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
