package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DateLayout is the accepted booking date format (YYYY-MM-DD).
	DateLayout = "2006-01-02"
	// TimeLayout is the accepted booking time format (HH:MM).
	TimeLayout = "15:04"
)

// Booking is a persisted interview booking.
type Booking struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Date      string    `json:"booking_date"`
	Time      string    `json:"booking_time"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingRequest is the body of a direct booking call.
type BookingRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// Validate checks name length, email syntax and the date and time layouts.
func (r *BookingRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if n := utf8.RuneCountInString(r.Name); n < 2 || n > 100 {
		return fmt.Errorf("%w: name must be between 2 and 100 characters", ErrInvalidArgument)
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return fmt.Errorf("%w: invalid email address", ErrInvalidArgument)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: invalid date format, use YYYY-MM-DD", ErrInvalidArgument)
	}
	if _, err := time.Parse(TimeLayout, r.Time); err != nil {
		return fmt.Errorf("%w: invalid time format, use HH:MM", ErrInvalidArgument)
	}
	return nil
}

// BookingResponse is returned after a direct booking.
type BookingResponse struct {
	Success   bool   `json:"success"`
	BookingID int64  `json:"booking_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Message   string `json:"message"`
}

// BookingList is the body of a booking listing.
type BookingList struct {
	Total    int        `json:"total"`
	Bookings []*Booking `json:"bookings"`
}
