package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/models"
	"github.com/aipdfchat/docchat/internal/storage"
)

var (
	// ErrDuplicateUser means the username or email is already registered.
	ErrDuplicateUser = errors.New("username or email already registered")
	// ErrInvalidCredentials means no exact username+password match exists.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Store manages local accounts and the single active session. Authentication
// is entirely client-side: no server round trip is involved, and the session
// is restored from durable storage on startup.
type Store struct {
	storage storage.Storage
	logger  *zap.Logger
	current *models.User
}

func New(storage storage.Storage, logger *zap.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
	}
}

// Restore hydrates the active session from durable storage. A dangling
// session reference (user record gone) is treated as no session.
func (s *Store) Restore(ctx context.Context) error {
	username, err := s.storage.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if username == "" {
		return nil
	}

	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to restore session user: %w", err)
	}
	if user == nil {
		s.logger.Warn("Stored session references unknown user, discarding",
			zap.String("username", username))
		return s.storage.ClearSession(ctx)
	}

	s.current = user
	return nil
}

// Register creates a new account. It does not log the user in.
func (s *Store) Register(ctx context.Context, fields models.User) error {
	fields.Username = strings.TrimSpace(fields.Username)
	fields.Email = strings.TrimSpace(fields.Email)
	if fields.Username == "" || fields.Email == "" || fields.Password == "" {
		return fmt.Errorf("username, email and password are required")
	}

	existing, err := s.storage.GetUserByUsername(ctx, fields.Username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return ErrDuplicateUser
	}

	existing, err = s.storage.GetUserByEmail(ctx, fields.Email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return ErrDuplicateUser
	}

	fields.CreatedAt = time.Now()
	if err := s.storage.CreateUser(ctx, &fields); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Registered new user", zap.String("username", fields.Username))
	return nil
}

// Login matches username and password exactly, case-sensitive. On success the
// matched record becomes the active session and is mirrored to storage.
func (s *Store) Login(ctx context.Context, username, password string) error {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || user.Password != password {
		return ErrInvalidCredentials
	}

	if err := s.storage.SaveSession(ctx, user.Username); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.current = user
	return nil
}

// Logout clears the active session. Idempotent.
func (s *Store) Logout(ctx context.Context) error {
	s.current = nil
	if err := s.storage.ClearSession(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Current returns the active user, or nil when logged out.
func (s *Store) Current() *models.User {
	return s.current
}
