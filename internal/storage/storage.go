// Package storage defines relational persistence for document metadata, chunks and bookings.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// DocumentStore persists document and chunk metadata.
type DocumentStore interface {
	// SaveDocument inserts a document and its chunks in one transaction.
	SaveDocument(ctx context.Context, doc *models.Document, chunks []*models.ChunkMeta) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentBySourcePath(ctx context.Context, path string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.ChunkMeta, error)
}

// BookingStore persists interview bookings.
type BookingStore interface {
	// CreateBooking inserts b in a transaction and sets its ID and CreatedAt.
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByEmail(ctx context.Context, email string) ([]*models.Booking, error)
}

// Storage is the full relational store.
type Storage interface {
	DocumentStore
	BookingStore

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
	CountBookings(ctx context.Context) (int64, error)

	Close() error
}
