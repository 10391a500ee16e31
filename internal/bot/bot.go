package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/chat"
	"github.com/aipdfchat/docchat/internal/registry"
	"github.com/aipdfchat/docchat/internal/upload"
)

// Bot is the Telegram frontend. The Telegram account stands in for a local
// session; plain messages are chat queries and PDF attachments are uploaded
// to the backend.
type Bot struct {
	api      *tgbotapi.BotAPI
	registry *registry.Registry
	chat     *chat.Orchestrator
	uploads  *upload.Orchestrator
	logger   *zap.Logger
}

func New(token string, reg *registry.Registry, chatOrch *chat.Orchestrator, uploads *upload.Orchestrator, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:      api,
		registry: reg,
		chat:     chatOrch,
		uploads:  uploads,
		logger:   logger,
	}, nil
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	if message.Document != nil {
		b.handleDocumentUpload(ctx, message)
		return
	}

	b.handleQuery(ctx, message)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "docs":
		b.handleDocs(ctx, message)
	case "select":
		b.handleSelect(message)
	case "delete":
		b.handleDelete(ctx, message)
	case "clear":
		b.chat.Conversation().Clear(ctx)
		b.sendMessage(message.Chat.ID, "Transcript cleared.")
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to DocChat! 📄
Send me a PDF and I'll index it, then ask me anything about its contents.

Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/docs - List uploaded documents
/select <name> - Toggle a document in the retrieval scope
/delete <name> - Delete a document
/clear - Clear the chat transcript

Send a PDF document to upload it.
Send any text message to ask a question about your documents.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleQuery(ctx context.Context, message *tgbotapi.Message) {
	query := message.Text
	if message.Caption != "" {
		query = message.Caption
	}

	turn, err := b.chat.Ask(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNoDocuments):
			b.sendErrorMessage(message.Chat.ID, "Upload a document before asking questions.")
		case errors.Is(err, chat.ErrEmptyQuery):
			b.sendErrorMessage(message.Chat.ID, "Please send a question.")
		case errors.Is(err, chat.ErrQueryInFlight):
			b.sendErrorMessage(message.Chat.ID, "Still working on your previous question, one moment.")
		default:
			b.logger.Error("Failed to submit query",
				zap.Error(err),
				zap.Int64("chat_id", message.Chat.ID))
			b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't process your question. Please try again.")
		}
		return
	}

	text := turn.Content
	if len(turn.Sources) > 0 {
		text += "\n\nSources: " + strings.Join(turn.Sources, ", ")
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send answer",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleDocumentUpload(ctx context.Context, message *tgbotapi.Message) {
	doc := message.Document

	fileURL, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		b.logger.Error("Failed to resolve file URL",
			zap.Error(err),
			zap.String("file_id", doc.FileID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't fetch that file from Telegram.")
		return
	}

	resp, err := http.Get(fileURL)
	if err != nil {
		b.logger.Error("Failed to download file",
			zap.Error(err),
			zap.String("file_id", doc.FileID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't download that file.")
		return
	}
	defer resp.Body.Close()

	result, err := b.uploads.UploadReader(ctx, doc.FileName, resp.Body)
	if err != nil {
		b.logger.Error("Failed to upload document",
			zap.Error(err),
			zap.String("file_name", doc.FileName))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the upload failed. Please try again.")
		return
	}

	b.sendMessage(message.Chat.ID, result.Summary())
}

func (b *Bot) handleDocs(ctx context.Context, message *tgbotapi.Message) {
	// Failures keep the cached list visible.
	_ = b.registry.Refresh(ctx)

	docs := b.registry.Documents()
	if len(docs) == 0 {
		b.sendMessage(message.Chat.ID, "No documents uploaded yet. Send me a PDF to get started.")
		return
	}

	sel := b.registry.Selection()
	var lines []string
	for _, d := range docs {
		marker := "•"
		if sel.Has(d.ID) {
			marker = "▸"
		}
		lines = append(lines, fmt.Sprintf("%s %s", marker, d.Name))
	}
	b.sendMessage(message.Chat.ID, "Your documents:\n"+strings.Join(lines, "\n"))
}

func (b *Bot) handleSelect(message *tgbotapi.Message) {
	name := strings.TrimSpace(message.CommandArguments())
	doc, ok := b.registry.Find(name)
	if !ok {
		b.sendErrorMessage(message.Chat.ID, "I don't know that document. Use /docs to list them.")
		return
	}

	sel := b.registry.Selection()
	sel.Toggle(doc.ID)
	if sel.Has(doc.ID) {
		b.sendMessage(message.Chat.ID, "Selected "+doc.Name+".")
	} else {
		b.sendMessage(message.Chat.ID, "Unselected "+doc.Name+".")
	}
}

func (b *Bot) handleDelete(ctx context.Context, message *tgbotapi.Message) {
	name := strings.TrimSpace(message.CommandArguments())
	doc, ok := b.registry.Find(name)
	if !ok {
		b.sendErrorMessage(message.Chat.ID, "I don't know that document. Use /docs to list them.")
		return
	}

	if err := b.registry.Delete(ctx, doc.ID); err != nil {
		b.logger.Error("Failed to delete document",
			zap.Error(err),
			zap.String("document", doc.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't delete "+doc.Name+".")
		return
	}

	b.sendMessage(message.Chat.ID, "Deleted "+doc.Name+".")
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
