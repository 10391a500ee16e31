package registry

import "sync"

// Selection tracks which documents scope the chat's retrieval. It holds a set
// of document ids that must stay a subset of the registry's cache.
type Selection struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{
		ids: make(map[string]struct{}),
	}
}

// Toggle flips membership of id in the selection set.
func (s *Selection) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[id]; exists {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// ReconcileRemoval purges id unconditionally. Called whenever the registry
// removes a document, so the selection never dangles.
func (s *Selection) ReconcileRemoval(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ids, id)
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.ids[id]
	return exists
}

// Len returns the number of selected documents.
func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ids)
}

// IDs returns the selected ids in no particular order.
func (s *Selection) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	return ids
}

// ScopeID returns the document id to narrow retrieval to. Exactly one
// selected document scopes the query to it; zero or multiple selections mean
// an unscoped search across all indexed content.
func (s *Selection) ScopeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.ids) != 1 {
		return ""
	}
	for id := range s.ids {
		return id
	}
	return ""
}

func (s *Selection) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[id] = struct{}{}
}
