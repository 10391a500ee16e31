package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/models"
	"github.com/aipdfchat/docchat/internal/storage"
)

// Conversation is the ordered transcript of chat turns. Every mutation is
// mirrored to durable storage best-effort: a failed write is logged and the
// in-memory transcript stays authoritative.
type Conversation struct {
	mu     sync.Mutex
	store  storage.TranscriptStorage
	logger *zap.Logger
	turns  []models.Turn
}

func NewConversation(store storage.TranscriptStorage, logger *zap.Logger) *Conversation {
	return &Conversation{
		store:  store,
		logger: logger,
	}
}

// Restore hydrates the transcript from durable storage.
func (c *Conversation) Restore(ctx context.Context) error {
	turns, err := c.store.LoadTranscript(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = turns
	return nil
}

// Append adds a turn at the end of the transcript and returns it.
func (c *Conversation) Append(ctx context.Context, role models.Role, content string, sources []string) models.Turn {
	turn := models.Turn{
		ID:      uuid.New().String(),
		Role:    role,
		Content: content,
		Sources: sources,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, turn)
	c.persist(ctx)
	return turn
}

// RemoveTurn deletes the turn with the given id, preserving order.
func (c *Conversation) RemoveTurn(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.turns[:0]
	for _, t := range c.turns {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.turns = kept
	c.persist(ctx)
}

// RemoveSystemTurns deletes every system-role turn. This is the failure
// cleanup policy: all transient placeholders go, not just the current one.
func (c *Conversation) RemoveSystemTurns(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.turns[:0]
	for _, t := range c.turns {
		if t.Role != models.RoleSystem {
			kept = append(kept, t)
		}
	}
	c.turns = kept
	c.persist(ctx)
}

// Clear empties the transcript and its durable mirror unconditionally. It
// does not cancel an in-flight query; a response arriving afterwards is still
// appended through the normal path.
func (c *Conversation) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = nil
	if err := c.store.ClearTranscript(ctx); err != nil {
		c.logger.Warn("Failed to clear persisted transcript", zap.Error(err))
	}
}

// Turns returns a copy of the transcript.
func (c *Conversation) Turns() []models.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := make([]models.Turn, len(c.turns))
	copy(turns, c.turns)
	return turns
}

// persist mirrors the transcript to storage. Callers must hold c.mu.
func (c *Conversation) persist(ctx context.Context) {
	if err := c.store.SaveTranscript(ctx, c.turns); err != nil {
		c.logger.Warn("Failed to persist transcript", zap.Error(err))
	}
}
