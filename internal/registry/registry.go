package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/models"
)

// Backend is the slice of the api client the registry needs.
type Backend interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Registry is a read-through cache of the backend's document list. It never
// shows a document the backend has not confirmed, and every removal cascades
// into the selection set in the same critical section.
type Registry struct {
	mu        sync.RWMutex
	backend   Backend
	selection *Selection
	logger    *zap.Logger
	docs      []models.Document

	// OnRemove, when set, is invoked after a confirmed removal, outside the
	// registry lock. Used to surface a notification turn in the transcript.
	OnRemove func(doc models.Document)
}

func New(backend Backend, selection *Selection, logger *zap.Logger) *Registry {
	return &Registry{
		backend:   backend,
		selection: selection,
		logger:    logger,
	}
}

// Refresh replaces the cache with the backend's current list. On failure the
// existing cache stays untouched; the error is logged and returned for
// callers that want to surface it, but it is never fatal.
func (r *Registry) Refresh(ctx context.Context) error {
	docs, err := r.backend.ListDocuments(ctx)
	if err != nil {
		r.logger.Warn("Failed to refresh document list, keeping cached copy",
			zap.Error(err))
		return err
	}

	r.mu.Lock()
	wasEmpty := len(r.docs) == 0
	r.docs = docs

	// The selection must stay a subset of the cache: ids that vanished from
	// the backend (deleted elsewhere, index rebuilt) are purged here, in the
	// same critical section as the swap.
	known := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		known[d.ID] = struct{}{}
	}
	for _, id := range r.selection.IDs() {
		if _, ok := known[id]; !ok {
			r.selection.ReconcileRemoval(id)
		}
	}
	r.mu.Unlock()

	r.applyDefaultSelection(wasEmpty)
	return nil
}

// Add merges freshly uploaded documents into the cache without waiting for a
// full refresh. De-duplication against a later Refresh is the backend's job.
func (r *Registry) Add(docs ...models.Document) {
	if len(docs) == 0 {
		return
	}

	r.mu.Lock()
	wasEmpty := len(r.docs) == 0
	r.docs = append(r.docs, docs...)
	r.mu.Unlock()

	r.applyDefaultSelection(wasEmpty)
}

// Delete asks the backend to remove the document and, only after
// confirmation, drops it from the cache and purges it from the selection.
func (r *Registry) Delete(ctx context.Context, id string) error {
	doc, ok := r.Find(id)
	if !ok {
		return fmt.Errorf("unknown document %q", id)
	}

	if err := r.backend.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	r.mu.Lock()
	kept := r.docs[:0]
	for _, d := range r.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	r.docs = kept
	r.selection.ReconcileRemoval(id)
	r.mu.Unlock()

	if r.OnRemove != nil {
		r.OnRemove(doc)
	}
	return nil
}

// Documents returns a copy of the cached list.
func (r *Registry) Documents() []models.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]models.Document, len(r.docs))
	copy(docs, r.docs)
	return docs
}

// Find returns the cached document with the given id.
func (r *Registry) Find(id string) (models.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.docs {
		if d.ID == id {
			return d, true
		}
	}
	return models.Document{}, false
}

// Empty reports whether the cache holds no documents.
func (r *Registry) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.docs) == 0
}

// Selection returns the selection model coupled to this registry.
func (r *Registry) Selection() *Selection {
	return r.selection
}

// applyDefaultSelection selects the first document when the cache just went
// from empty to non-empty and nothing was selected yet.
func (r *Registry) applyDefaultSelection(wasEmpty bool) {
	if !wasEmpty {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.docs) > 0 && r.selection.Len() == 0 {
		r.selection.add(r.docs[0].ID)
	}
}
