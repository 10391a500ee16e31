package storage

import (
	"context"
	"sync"

	"github.com/aipdfchat/docchat/internal/models"
)

type MemoryStorage struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	session string
	turns   []models.Turn
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[string]*models.User),
	}
}

func (s *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := *user
	s.users[u.Username] = &u
	return nil
}

func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[username]; exists {
		u := *user
		return &u, nil
	}
	return nil, nil
}

func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) SaveSession(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = username
	return nil
}

func (s *MemoryStorage) GetSession(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session, nil
}

func (s *MemoryStorage) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = ""
	return nil
}

func (s *MemoryStorage) SaveTranscript(ctx context.Context, turns []models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = make([]models.Turn, len(turns))
	copy(s.turns, turns)
	return nil
}

func (s *MemoryStorage) LoadTranscript(ctx context.Context) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]models.Turn, len(s.turns))
	copy(turns, s.turns)
	return turns, nil
}

func (s *MemoryStorage) ClearTranscript(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
