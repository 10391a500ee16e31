package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/api"
	"github.com/aipdfchat/docchat/internal/models"
	"github.com/aipdfchat/docchat/internal/registry"
)

var (
	// ErrNoDocuments means a query was submitted with no documents in the
	// registry. Surfaced as a blocking notice, never as a transcript turn.
	ErrNoDocuments = errors.New("no documents uploaded yet")
	// ErrEmptyQuery means the trimmed query text was empty.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrQueryInFlight means a previous query has not completed yet.
	ErrQueryInFlight = errors.New("another query is still in progress")
)

const thinkingMessage = "Thinking..."

const failureMessage = "Sorry, I ran into a problem answering that. Please try again."

// Querier is the slice of the api client the orchestrator needs.
type Querier interface {
	Chat(ctx context.Context, query string, k int, document string) (*api.ChatResult, error)
}

// Orchestrator drives one wait/respond cycle per query: user turn, transient
// thinking turn, backend call, then either the assistant answer or a fixed
// failure message.
type Orchestrator struct {
	conversation *Conversation
	registry     *registry.Registry
	backend      Querier
	logger       *zap.Logger
	k            int

	mu       sync.Mutex
	inFlight bool
}

func NewOrchestrator(conversation *Conversation, reg *registry.Registry, backend Querier, k int, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		conversation: conversation,
		registry:     reg,
		backend:      backend,
		logger:       logger,
		k:            k,
	}
}

// Ask submits one chat query and blocks until its terminal state. The
// returned turn is the assistant turn appended to the transcript; on backend
// failure that turn carries the fixed failure message and the error is
// logged, not returned. Pre-flight failures (empty query, empty registry,
// query already in flight) return an error and append nothing.
func (o *Orchestrator) Ask(ctx context.Context, query string) (models.Turn, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Turn{}, ErrEmptyQuery
	}
	if o.registry.Empty() {
		return models.Turn{}, ErrNoDocuments
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return models.Turn{}, ErrQueryInFlight
	}
	o.inFlight = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	o.conversation.Append(ctx, models.RoleUser, query, nil)
	thinking := o.conversation.Append(ctx, models.RoleSystem, thinkingMessage, nil)

	scope := o.registry.Selection().ScopeID()
	result, err := o.backend.Chat(ctx, query, o.k, scope)
	if err != nil {
		o.logger.Error("Chat query failed",
			zap.Error(err),
			zap.String("document", scope))
		o.conversation.RemoveSystemTurns(ctx)
		return o.conversation.Append(ctx, models.RoleAssistant, failureMessage, nil), nil
	}

	o.conversation.RemoveTurn(ctx, thinking.ID)
	return o.conversation.Append(ctx, models.RoleAssistant, result.Answer, result.Sources), nil
}

// Conversation returns the transcript this orchestrator appends to.
func (o *Orchestrator) Conversation() *Conversation {
	return o.conversation
}
