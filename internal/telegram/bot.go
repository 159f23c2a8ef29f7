// Package telegram runs the operator bot: it delivers alerts to the
// operator chat and answers operator commands sent from that chat.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// maxMessageLength is the Telegram limit for one text message
const maxMessageLength = 4096

// Bot wraps the Telegram bot API
type Bot struct {
	api         *tgbotapi.BotAPI
	logger      *logrus.Logger
	router      *Router
	alertChatID int64
}

// NewBot creates a new Telegram bot instance
func NewBot(token string, alertChatID int64, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	return NewBotWithAPI(api, alertChatID, logger), nil
}

// NewBotWithAPI creates a bot around an existing API client
func NewBotWithAPI(api *tgbotapi.BotAPI, alertChatID int64, logger *logrus.Logger) *Bot {
	logger.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		logger:      logger,
		router:      NewRouter(alertChatID, logger),
		alertChatID: alertChatID,
	}
}

// Start starts the bot with long polling
func (b *Bot) Start(ctx context.Context) error {
	// Delete webhook if exists and use polling
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Operator bot started with long polling")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping operator bot...")
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate processes incoming updates
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Panic in update handler: %v", r)
		}
	}()

	if update.Message != nil {
		b.router.HandleMessage(ctx, b.api, update.Message)
	}
}

// Alert sends text to the operator chat
func (b *Bot) Alert(_ context.Context, text string) error {
	return b.SendMessage(b.alertChatID, "⚠️ "+text)
}

// SendMessage sends a plain text message to a chat
func (b *Bot) SendMessage(chatID int64, text string) error {
	if r := []rune(text); len(r) > maxMessageLength {
		text = string(r[:maxMessageLength-3]) + "..."
	}
	msg := tgbotapi.NewMessage(chatID, text)

	_, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// RegisterCommand registers a command handler on the router
func (b *Bot) RegisterCommand(command string, handler CommandHandler) {
	b.router.RegisterCommand(command, handler)
}
