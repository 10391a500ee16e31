package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/api"
	"github.com/aipdfchat/docchat/internal/bot"
	"github.com/aipdfchat/docchat/internal/chat"
	"github.com/aipdfchat/docchat/internal/cli"
	"github.com/aipdfchat/docchat/internal/models"
	"github.com/aipdfchat/docchat/internal/registry"
	"github.com/aipdfchat/docchat/internal/session"
	"github.com/aipdfchat/docchat/internal/storage"
	"github.com/aipdfchat/docchat/internal/upload"
	"github.com/aipdfchat/docchat/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using SQLite storage", zap.String("path", cfg.Database.Path))
		store, err = storage.NewSQLiteStorage(cfg.Database.Path)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	ctx := context.Background()

	// Initialize backend client and probe reachability (non-fatal)
	backend := api.New(cfg.Backend.URL, logger)
	if err := backend.Health(ctx); err != nil {
		logger.Warn("Backend health check failed", zap.Error(err), zap.String("url", cfg.Backend.URL))
	}

	// Restore the session from durable storage, no network round trip
	sess := session.New(store, logger)
	if err := sess.Restore(ctx); err != nil {
		logger.Warn("Failed to restore session", zap.Error(err))
	}

	// Wire the document registry, selection and chat state
	selection := registry.NewSelection()
	reg := registry.New(backend, selection, logger)

	conversation := chat.NewConversation(store, logger)
	if err := conversation.Restore(ctx); err != nil {
		logger.Warn("Failed to restore transcript", zap.Error(err))
	}

	chatOrch := chat.NewOrchestrator(conversation, reg, backend, cfg.Backend.K, logger)
	uploads := upload.New(backend, reg, cfg.Upload.MaxFiles, logger)

	// A confirmed delete cascades into the transcript as a notification turn
	reg.OnRemove = func(doc models.Document) {
		conversation.Append(ctx, models.RoleAssistant, "Removed document "+doc.Name+".", nil)
	}

	if sess.Current() != nil {
		if err := reg.Refresh(ctx); err != nil {
			logger.Warn("Initial document refresh failed", zap.Error(err))
		}
	}

	// Start the Telegram frontend when a token is configured, the REPL otherwise
	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, reg, chatOrch, uploads, logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		if err := b.Start(); err != nil {
			logger.Fatal("Bot error", zap.Error(err))
		}
		return
	}

	repl := cli.New(sess, reg, chatOrch, uploads, backend, cfg.Backend.K, os.Stdin, os.Stdout, logger)
	if err := repl.Run(ctx); err != nil {
		logger.Fatal("REPL error", zap.Error(err))
	}
}
