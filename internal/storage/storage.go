// Package storage persists document records and chat history, and stores uploaded files.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/ragqa/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document record and chat history persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chat history
	AddChatEntry(ctx context.Context, entry *models.ChatEntry) error
	ListChatEntries(ctx context.Context, limit int) ([]*models.ChatEntry, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChatEntries(ctx context.Context) (int64, error)

	Close() error
}
