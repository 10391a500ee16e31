package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, zap.NewNop())
}

func TestChatSendsScopeAndK(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ChatResult{Query: "q", Answer: "a", Sources: []string{"a.pdf"}})
	}))

	result, err := c.Chat(context.Background(), "what is this?", 5, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a", result.Answer)
	assert.Equal(t, []string{"a.pdf"}, result.Sources)
	assert.Equal(t, "what is this?", got["query"])
	assert.Equal(t, float64(5), got["k"])
	assert.Equal(t, "a.pdf", got["document"])
}

func TestChatUnscopedOmitsDocument(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ChatResult{})
	}))

	_, err := c.Chat(context.Background(), "q", 5, "")
	require.NoError(t, err)
	_, hasDoc := got["document"]
	assert.False(t, hasDoc)
}

func TestUploadPostsMultipartFile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/upload", r.URL.Path)
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "paper.pdf", header.Filename)
		json.NewEncoder(w).Encode(UploadResult{Filename: "paper.pdf", ChunksAdded: 12})
	}))

	result, err := c.Upload(context.Background(), "paper.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "paper.pdf", result.Filename)
	assert.Equal(t, 12, result.ChunksAdded)
}

func TestListDocumentsNotFoundMeansEmpty(t *testing.T) {
	// A fresh backend 404s /docs until the first upload builds an index.
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"No index available. Upload documents first."}`, http.StatusNotFound)
	}))

	docs, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteDocumentEscapesID(t *testing.T) {
	var path string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		assert.Equal(t, http.MethodDelete, r.Method)
	}))

	require.NoError(t, c.DeleteDocument(context.Background(), "my file.pdf"))
	assert.Equal(t, "/api/documents/my%20file.pdf", path)
}

func TestErrorDetailExtraction(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"Upload failed: bad pdf"}`))
	}))

	err := c.DeleteDocument(context.Background(), "x")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Upload failed: bad pdf", apiErr.Detail)
}

func TestErrorRawBodyFallback(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))

	err := c.DeleteDocument(context.Background(), "x")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream exploded", apiErr.Detail)
}

func TestMalformedSuccessBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))

	_, err := c.Chat(context.Background(), "q", 5, "")
	var malformed *MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestFeedbackPostsForm(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/feedback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))

	err := c.Feedback(context.Background(), "Alice", "alice@x.com", "hi", "great tool")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", got["email"])
	assert.Equal(t, "great tool", got["message"])
}

func TestHealthUsesRootPath(t *testing.T) {
	var path string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"status":"ok"}`))
	}))

	require.NoError(t, c.Health(context.Background()))
	assert.Equal(t, "/health", path)
}
