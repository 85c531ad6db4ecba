package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// CreateBooking inserts a booking in its own transaction. Any failure rolls back and no row remains.
func (s *SQLiteStorage) CreateBooking(ctx context.Context, b *models.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b.CreatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (name, email, booking_date, booking_time, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.Name, b.Email, b.Date, b.Time, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	b.ID = id
	return nil
}

// GetBooking returns a booking by ID.
func (s *SQLiteStorage) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, booking_date, booking_time, created_at FROM bookings WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Email, &b.Date, &b.Time, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookings returns all bookings newest first.
func (s *SQLiteStorage) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.queryBookings(ctx,
		`SELECT id, name, email, booking_date, booking_time, created_at FROM bookings ORDER BY id DESC`)
}

// ListBookingsByEmail returns the bookings made with email, newest first.
func (s *SQLiteStorage) ListBookingsByEmail(ctx context.Context, email string) ([]*models.Booking, error) {
	return s.queryBookings(ctx,
		`SELECT id, name, email, booking_date, booking_time, created_at FROM bookings WHERE email = ? ORDER BY id DESC`,
		email)
}

func (s *SQLiteStorage) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.Date, &b.Time, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}

// CountBookings returns the total number of bookings.
func (s *SQLiteStorage) CountBookings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count)
	return count, err
}
