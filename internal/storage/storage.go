package storage

import (
	"context"

	"github.com/aipdfchat/docchat/internal/models"
)

// Storage is the durable local store backing accounts, the active session and
// the chat transcript. Lookup methods return (nil, nil) when no record exists.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Embed SessionStorage and TranscriptStorage interfaces
	SessionStorage
	TranscriptStorage

	Close() error
}

// SessionStorage holds at most one active session, stored as a username
// reference keyed independently from the user table.
type SessionStorage interface {
	SaveSession(ctx context.Context, username string) error
	GetSession(ctx context.Context) (string, error)
	ClearSession(ctx context.Context) error
}

// TranscriptStorage mirrors the full transcript on every mutation.
type TranscriptStorage interface {
	SaveTranscript(ctx context.Context, turns []models.Turn) error
	LoadTranscript(ctx context.Context) ([]models.Turn, error)
	ClearTranscript(ctx context.Context) error
}
