package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/api"
	"github.com/aipdfchat/docchat/internal/chat"
	"github.com/aipdfchat/docchat/internal/models"
	"github.com/aipdfchat/docchat/internal/registry"
	"github.com/aipdfchat/docchat/internal/session"
	"github.com/aipdfchat/docchat/internal/upload"
)

// REPL is the interactive terminal frontend. Anything that is not a /command
// is submitted as a chat query.
type REPL struct {
	session  *session.Store
	registry *registry.Registry
	chat     *chat.Orchestrator
	uploads  *upload.Orchestrator
	backend  *api.Client
	logger   *zap.Logger
	k        int

	in  *bufio.Scanner
	out io.Writer
}

func New(sess *session.Store, reg *registry.Registry, chatOrch *chat.Orchestrator,
	uploads *upload.Orchestrator, backend *api.Client, k int,
	in io.Reader, out io.Writer, logger *zap.Logger) *REPL {
	return &REPL{
		session:  sess,
		registry: reg,
		chat:     chatOrch,
		uploads:  uploads,
		backend:  backend,
		logger:   logger,
		k:        k,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

func (r *REPL) Run(ctx context.Context) error {
	r.printf("docchat - ask questions about your uploaded PDFs")
	r.printf("Type /help for commands.")
	if user := r.session.Current(); user != nil {
		r.printf("Logged in as %s.", user.Username)
	} else {
		r.printf("Use /register or /login to get started.")
	}

	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		if line == "/quit" || line == "/exit" {
			return nil
		}

		r.dispatch(ctx, line)
	}
}

func (r *REPL) dispatch(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		r.requireLogin(func() { r.handleChat(ctx, line) })
		return
	}

	cmd, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/help":
		r.handleHelp()
	case "/register":
		r.handleRegister(ctx)
	case "/login":
		r.handleLogin(ctx, args)
	case "/logout":
		if err := r.session.Logout(ctx); err != nil {
			r.printf("Failed to log out: %v", err)
			return
		}
		r.printf("Logged out.")
	case "/docs":
		r.requireLogin(func() { r.handleDocs(ctx) })
	case "/select":
		r.requireLogin(func() { r.handleSelect(args) })
	case "/delete":
		r.requireLogin(func() { r.handleDelete(ctx, args) })
	case "/upload":
		r.requireLogin(func() { r.handleUpload(ctx, args) })
	case "/process":
		r.requireLogin(func() { r.handleProcess(ctx, args) })
	case "/search":
		r.requireLogin(func() { r.handleSearch(ctx, args) })
	case "/feedback":
		r.requireLogin(func() { r.handleFeedback(ctx) })
	case "/history":
		r.requireLogin(func() { r.handleHistory() })
	case "/clear":
		r.requireLogin(func() {
			r.chat.Conversation().Clear(ctx)
			r.printf("Transcript cleared.")
		})
	default:
		r.printf("Unknown command. Use /help to see available commands.")
	}
}

func (r *REPL) handleHelp() {
	r.printf(`Available commands:
/register            Create a local account
/login <user> <pass> Log in
/logout              Log out
/docs                List uploaded documents (* marks selection)
/select <id|#>       Toggle a document in the retrieval scope
/delete <id|#>       Delete a document from the backend
/upload <path> [path] Upload up to %d PDF files
/process <option> [doc] Run a post-processing option (summary, key points, ...)
/search <query>      One-shot retrieval without chat history
/feedback            Send feedback to the maintainers
/history             Show the transcript
/clear               Clear the transcript
/quit                Exit

Anything else is sent as a chat question.`, upload.DefaultMaxFiles)
}

func (r *REPL) handleRegister(ctx context.Context) {
	fields := models.User{
		Username:   r.prompt("Username: "),
		Email:      r.prompt("Email: "),
		Password:   r.prompt("Password: "),
		Name:       r.prompt("Name (optional): "),
		Profession: r.prompt("Profession (optional): "),
		Purpose:    r.prompt("What will you use this for? (optional): "),
	}

	if err := r.session.Register(ctx, fields); err != nil {
		if errors.Is(err, session.ErrDuplicateUser) {
			r.printf("That username or email is already registered.")
			return
		}
		r.printf("Registration failed: %v", err)
		return
	}
	r.printf("Account created. Use /login to sign in.")
}

func (r *REPL) handleLogin(ctx context.Context, args string) {
	username, password, ok := strings.Cut(args, " ")
	if !ok {
		username = r.prompt("Username: ")
		password = r.prompt("Password: ")
	}

	if err := r.session.Login(ctx, strings.TrimSpace(username), strings.TrimSpace(password)); err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			r.printf("Invalid username or password.")
			return
		}
		r.printf("Login failed: %v", err)
		return
	}

	r.printf("Welcome back, %s.", r.session.Current().Username)
	r.refreshDocs(ctx)
}

func (r *REPL) handleChat(ctx context.Context, query string) {
	r.printf("Thinking...")
	turn, err := r.chat.Ask(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNoDocuments):
			r.printf("Upload a document before asking questions.")
		case errors.Is(err, chat.ErrEmptyQuery):
			r.printf("Please type a question.")
		default:
			r.logger.Error("Failed to submit query", zap.Error(err))
			r.printf("Could not submit your question: %v", err)
		}
		return
	}

	r.printTurn(turn)
}

func (r *REPL) handleDocs(ctx context.Context) {
	r.refreshDocs(ctx)

	docs := r.registry.Documents()
	if len(docs) == 0 {
		r.printf("No documents uploaded yet.")
		return
	}

	sel := r.registry.Selection()
	for i, d := range docs {
		marker := " "
		if sel.Has(d.ID) {
			marker = "*"
		}
		if d.Chunks > 0 {
			r.printf("%s %d. %s (%d chunks)", marker, i+1, d.Name, d.Chunks)
		} else {
			r.printf("%s %d. %s", marker, i+1, d.Name)
		}
	}
}

func (r *REPL) handleSelect(args string) {
	doc, ok := r.resolveDoc(args)
	if !ok {
		return
	}

	sel := r.registry.Selection()
	sel.Toggle(doc.ID)
	if sel.Has(doc.ID) {
		r.printf("Selected %s.", doc.Name)
	} else {
		r.printf("Unselected %s.", doc.Name)
	}

	if sel.Len() != 1 {
		r.printf("Retrieval is unscoped (searching all documents).")
	}
}

func (r *REPL) handleDelete(ctx context.Context, args string) {
	doc, ok := r.resolveDoc(args)
	if !ok {
		return
	}

	if err := r.registry.Delete(ctx, doc.ID); err != nil {
		r.printf("Failed to delete %s: %v", doc.Name, err)
		return
	}
	r.printf("Deleted %s.", doc.Name)
}

func (r *REPL) handleUpload(ctx context.Context, args string) {
	paths := strings.Fields(args)
	if len(paths) == 0 {
		r.printf("Usage: /upload <path> [path]")
		return
	}

	if err := r.uploads.Select(paths...); err != nil {
		r.printf("%v", err)
		return
	}

	result, err := r.uploads.Upload(ctx)
	if err != nil {
		if errors.Is(err, upload.ErrNoFileSelected) {
			r.printf("No file selected.")
			return
		}
		r.printf("Upload failed: %v", err)
		return
	}

	r.printf("%s", result.Summary())
	if len(result.Options) > 0 {
		r.printf("Post-processing options:")
		for _, opt := range result.Options {
			r.printf("  %s - %s", opt.Key, opt.Label)
		}
	}
}

func (r *REPL) handleProcess(ctx context.Context, args string) {
	option, docArg, _ := strings.Cut(args, " ")
	if option == "" {
		r.printf("Usage: /process <option> [doc]")
		if opts := r.uploads.Options(); len(opts) > 0 {
			for _, opt := range opts {
				r.printf("  %s - %s", opt.Key, opt.Label)
			}
		}
		return
	}

	var filename string
	if strings.TrimSpace(docArg) != "" {
		doc, ok := r.resolveDoc(strings.TrimSpace(docArg))
		if !ok {
			return
		}
		filename = doc.ID
	} else if id := r.registry.Selection().ScopeID(); id != "" {
		filename = id
	} else {
		r.printf("Select exactly one document or name one: /process <option> <doc>")
		return
	}

	r.printf("Processing %s...", filename)
	result, err := r.backend.Process(ctx, filename, option, r.k)
	if err != nil {
		r.printf("Processing failed: %v", err)
		return
	}

	if result.Label != "" {
		r.printf("%s:", result.Label)
	}
	r.printf("%s", result.Result)
}

func (r *REPL) handleSearch(ctx context.Context, args string) {
	query := strings.TrimSpace(args)
	if query == "" {
		r.printf("Usage: /search <query>")
		return
	}

	result, err := r.backend.Search(ctx, query, r.k)
	if err != nil {
		r.printf("Search failed: %v", err)
		return
	}

	r.printf("%s", result.Answer)
	if len(result.Sources) > 0 {
		r.printf("Sources: %s", strings.Join(result.Sources, ", "))
	}
}

func (r *REPL) handleFeedback(ctx context.Context) {
	user := r.session.Current()
	name := user.Name
	if name == "" {
		name = user.Username
	}

	subject := r.prompt("Subject: ")
	message := r.prompt("Message: ")
	if strings.TrimSpace(message) == "" {
		r.printf("Feedback message cannot be empty.")
		return
	}

	if err := r.backend.Feedback(ctx, name, user.Email, subject, message); err != nil {
		r.printf("Failed to send feedback: %v", err)
		return
	}
	r.printf("Thanks for the feedback!")
}

func (r *REPL) handleHistory() {
	turns := r.chat.Conversation().Turns()
	if len(turns) == 0 {
		r.printf("The transcript is empty.")
		return
	}
	for _, turn := range turns {
		r.printTurn(turn)
	}
}

// requireLogin runs fn only when a session is active.
func (r *REPL) requireLogin(fn func()) {
	if r.session.Current() == nil {
		r.printf("Please /login first.")
		return
	}
	fn()
}

// refreshDocs refreshes the registry, swallowing failures so stale cached
// data stays visible.
func (r *REPL) refreshDocs(ctx context.Context) {
	_ = r.registry.Refresh(ctx)
}

// resolveDoc accepts a document id or a 1-based index from /docs output.
func (r *REPL) resolveDoc(arg string) (models.Document, bool) {
	if arg == "" {
		r.printf("Which document? Use /docs to list them.")
		return models.Document{}, false
	}

	if n, err := strconv.Atoi(arg); err == nil {
		docs := r.registry.Documents()
		if n < 1 || n > len(docs) {
			r.printf("No document #%d.", n)
			return models.Document{}, false
		}
		return docs[n-1], true
	}

	doc, ok := r.registry.Find(arg)
	if !ok {
		r.printf("Unknown document %q. Use /docs to list them.", arg)
		return models.Document{}, false
	}
	return doc, true
}

func (r *REPL) printTurn(turn models.Turn) {
	switch turn.Role {
	case models.RoleUser:
		r.printf("you: %s", turn.Content)
	case models.RoleAssistant:
		r.printf("assistant: %s", turn.Content)
		if len(turn.Sources) > 0 {
			r.printf("sources: %s", strings.Join(turn.Sources, ", "))
		}
	default:
		r.printf("%s", turn.Content)
	}
}

func (r *REPL) prompt(label string) string {
	fmt.Fprint(r.out, label)
	if !r.in.Scan() {
		return ""
	}
	return strings.TrimSpace(r.in.Text())
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}
