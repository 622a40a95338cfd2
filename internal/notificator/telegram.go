package notificator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/logger"
)

// ChatLinker is the part of the repository the bot needs to link chats to creators.
type ChatLinker interface {
	GetCreatorProfileByTelegramUsername(ctx context.Context, username string) (*models.CreatorProfile, error)
	SetTelegramChatID(ctx context.Context, profileID int64, chatID string) error
}

type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot

	db ChatLinker
}

func NewTelegramNotificator(logger *logger.Logger, token string, db ChatLinker) (*TelegramNotificator, error) {
	provider := &TelegramNotificator{
		logger: logger,
		db:     db,
	}
	opts := []bot.Option{
		bot.WithDefaultHandler(provider.handler),
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	provider.bot = b

	return provider, nil
}

// Start polls Telegram for updates until ctx is cancelled.
func (t *TelegramNotificator) Start(ctx context.Context) {
	t.bot.Start(ctx)
}

func (t *TelegramNotificator) SendNotification(ctx context.Context, chatId, message string) error {
	params := &bot.SendMessageParams{
		ChatID: chatId,
		Text:   message,
	}
	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (t *TelegramNotificator) handler(ctx context.Context, b *bot.Bot, update *tgModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	user := update.Message.From
	t.logger.Debugw("Telegram update", "username", user.Username, "text", update.Message.Text)
	if strings.TrimSpace(update.Message.Text) != "/start" {
		return
	}

	chatID := fmt.Sprint(update.Message.Chat.ID)
	slug, err := t.linkChat(ctx, user.Username, chatID)
	if err != nil {
		t.logger.Warnw("Failed to link telegram chat", "username", user.Username, "error", err)
		return
	}
	if err := t.SendNotification(ctx, chatID, "You will now receive tip alerts for "+slug); err != nil {
		t.logger.Errorw("Failed to confirm telegram link", "error", err)
	}
}

// linkChat records chatID on the creator profile registered with username.
func (t *TelegramNotificator) linkChat(ctx context.Context, username, chatID string) (string, error) {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	if username == "" {
		return "", fmt.Errorf("telegram user has no username")
	}
	profile, err := t.db.GetCreatorProfileByTelegramUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if err := t.db.SetTelegramChatID(ctx, profile.ID, chatID); err != nil {
		return "", err
	}
	t.logger.Infow("Telegram chat linked", "slug", profile.Slug, "chat_id", chatID)
	return profile.Slug, nil
}
