package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/api"
	"github.com/aipdfchat/docchat/internal/chat"
	"github.com/aipdfchat/docchat/internal/models"
	"github.com/aipdfchat/docchat/internal/registry"
	"github.com/aipdfchat/docchat/internal/session"
	"github.com/aipdfchat/docchat/internal/storage"
	"github.com/aipdfchat/docchat/internal/upload"
)

// newTestREPL wires a REPL against a backend whose /docs route 404s like a
// fresh index, feeding it the given input lines.
func newTestREPL(t *testing.T, input string) (*REPL, *session.Store, *bytes.Buffer) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	store := storage.NewMemoryStorage()
	sess := session.New(store, logger)
	backend := api.New(srv.URL, logger)
	reg := registry.New(backend, registry.NewSelection(), logger)
	conversation := chat.NewConversation(store, logger)
	chatOrch := chat.NewOrchestrator(conversation, reg, backend, 5, logger)
	uploads := upload.New(backend, reg, upload.DefaultMaxFiles, logger)

	var out bytes.Buffer
	repl := New(sess, reg, chatOrch, uploads, backend, 5,
		strings.NewReader(input), &out, logger)
	return repl, sess, &out
}

func TestBareTextRequiresLogin(t *testing.T) {
	repl, _, out := newTestREPL(t, "hello there\n/quit\n")

	require.NoError(t, repl.Run(context.Background()))

	// Without a session the query never reaches the chat path.
	assert.Contains(t, out.String(), "Please /login first.")
	assert.NotContains(t, out.String(), "Upload a document")
	assert.NotContains(t, out.String(), "Thinking...")
}

func TestBareTextReachesChatWhenLoggedIn(t *testing.T) {
	repl, sess, out := newTestREPL(t, "hello there\n/quit\n")

	ctx := context.Background()
	require.NoError(t, sess.Register(ctx, models.User{Username: "alice", Email: "alice@x.com", Password: "secret1"}))
	require.NoError(t, sess.Login(ctx, "alice", "secret1"))

	require.NoError(t, repl.Run(ctx))

	// Logged in with an empty registry, the query hits the chat pre-flight.
	assert.Contains(t, out.String(), "Upload a document before asking questions.")
	assert.NotContains(t, out.String(), "Please /login first.")
}

func TestCommandsRequireLogin(t *testing.T) {
	repl, _, out := newTestREPL(t, "/docs\n/clear\n/quit\n")

	require.NoError(t, repl.Run(context.Background()))

	assert.Equal(t, 2, strings.Count(out.String(), "Please /login first."))
}
