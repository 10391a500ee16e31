package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/models"
)

type fakeBackend struct {
	docs      []models.Document
	listErr   error
	deleteErr error
	deleted   []string
}

func (f *fakeBackend) ListDocuments(ctx context.Context) ([]models.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs, nil
}

func (f *fakeBackend) DeleteDocument(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestRegistry(backend *fakeBackend) *Registry {
	return New(backend, NewSelection(), zap.NewNop())
}

func TestRefreshDefaultSelection(t *testing.T) {
	backend := &fakeBackend{docs: []models.Document{{ID: "a"}, {ID: "b"}}}
	r := newTestRegistry(backend)

	require.NoError(t, r.Refresh(context.Background()))

	// Empty -> non-empty with no selection selects exactly the first document.
	assert.True(t, r.Selection().Has("a"))
	assert.False(t, r.Selection().Has("b"))
	assert.Equal(t, 1, r.Selection().Len())
}

func TestRefreshKeepsExistingSelection(t *testing.T) {
	backend := &fakeBackend{docs: []models.Document{{ID: "a"}, {ID: "b"}}}
	r := newTestRegistry(backend)
	r.Selection().Toggle("b")

	require.NoError(t, r.Refresh(context.Background()))

	assert.False(t, r.Selection().Has("a"))
	assert.True(t, r.Selection().Has("b"))
}

func TestRefreshFailureKeepsCache(t *testing.T) {
	backend := &fakeBackend{docs: []models.Document{{ID: "a"}}}
	r := newTestRegistry(backend)
	require.NoError(t, r.Refresh(context.Background()))

	backend.listErr = errors.New("connection refused")
	err := r.Refresh(context.Background())
	assert.Error(t, err)

	// Stale but consistent cache stays visible.
	assert.Len(t, r.Documents(), 1)
}

func TestRefreshPrunesVanishedSelection(t *testing.T) {
	backend := &fakeBackend{docs: []models.Document{{ID: "a"}, {ID: "b"}}}
	r := newTestRegistry(backend)
	require.NoError(t, r.Refresh(context.Background()))
	require.True(t, r.Selection().Has("a"))

	// "a" disappears from the backend between refreshes.
	backend.docs = []models.Document{{ID: "b"}}
	require.NoError(t, r.Refresh(context.Background()))

	assert.False(t, r.Selection().Has("a"), "selection may not outlive the cache entry")
	assert.Equal(t, "", r.Selection().ScopeID())
	_, found := r.Find("a")
	assert.False(t, found)
}

func TestRefreshKeepsSurvivingSelection(t *testing.T) {
	backend := &fakeBackend{docs: []models.Document{{ID: "a"}, {ID: "b"}}}
	r := newTestRegistry(backend)
	require.NoError(t, r.Refresh(context.Background()))
	r.Selection().Toggle("b")

	backend.docs = []models.Document{{ID: "b"}}
	require.NoError(t, r.Refresh(context.Background()))

	assert.True(t, r.Selection().Has("b"))
	assert.Equal(t, 1, r.Selection().Len())
}

func TestAddMergesWithoutRefresh(t *testing.T) {
	r := newTestRegistry(&fakeBackend{})

	r.Add(models.Document{ID: "new.pdf", Name: "new.pdf"})

	docs := r.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "new.pdf", docs[0].ID)
	// First document into an empty registry gets selected.
	assert.True(t, r.Selection().Has("new.pdf"))
}

func TestDeleteCascadesIntoSelection(t *testing.T) {
	backend := &fakeBackend{docs: []models.Document{{ID: "a"}, {ID: "b"}}}
	r := newTestRegistry(backend)
	require.NoError(t, r.Refresh(context.Background()))
	require.True(t, r.Selection().Has("a"))

	var removed []string
	r.OnRemove = func(doc models.Document) { removed = append(removed, doc.ID) }

	require.NoError(t, r.Delete(context.Background(), "a"))

	assert.Equal(t, []string{"a"}, backend.deleted)
	assert.False(t, r.Selection().Has("a"), "deleted id must leave the selection")
	_, found := r.Find("a")
	assert.False(t, found)
	assert.Equal(t, []string{"a"}, removed)
}

func TestDeleteRequiresBackendConfirmation(t *testing.T) {
	backend := &fakeBackend{
		docs:      []models.Document{{ID: "a"}},
		deleteErr: errors.New("boom"),
	}
	r := newTestRegistry(backend)
	require.NoError(t, r.Refresh(context.Background()))

	err := r.Delete(context.Background(), "a")
	assert.Error(t, err)

	// Without confirmation the cache and selection are untouched.
	_, found := r.Find("a")
	assert.True(t, found)
	assert.True(t, r.Selection().Has("a"))
}

func TestDeleteUnknownDocument(t *testing.T) {
	r := newTestRegistry(&fakeBackend{})
	assert.Error(t, r.Delete(context.Background(), "ghost"))
}
