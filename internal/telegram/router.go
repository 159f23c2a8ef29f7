package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Router handles message routing and command parsing
type Router struct {
	logger        *logrus.Logger
	handlers      map[string]CommandHandler
	allowedChatID int64
}

// CommandHandler handles one operator command and returns the reply text
type CommandHandler interface {
	Handle(ctx context.Context, args []string) (string, error)
}

// NewRouter creates a router that only answers messages from allowedChatID
func NewRouter(allowedChatID int64, logger *logrus.Logger) *Router {
	return &Router{
		logger:        logger,
		handlers:      make(map[string]CommandHandler),
		allowedChatID: allowedChatID,
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(ctx context.Context, bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	if message.Text == "" || !message.IsCommand() {
		return
	}

	fields := logrus.Fields{
		"chat_id":    message.Chat.ID,
		"message_id": message.MessageID,
		"command":    message.Command(),
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
	}
	log := r.logger.WithFields(fields)

	if message.Chat.ID != r.allowedChatID {
		log.Warn("Ignoring command from foreign chat")
		return
	}

	log.Info("Received operator command")

	reply := r.dispatch(ctx, log, message.Command(), strings.Fields(message.CommandArguments()))
	if _, err := bot.Send(tgbotapi.NewMessage(message.Chat.ID, reply)); err != nil {
		log.WithError(err).Error("Failed to send reply")
	}
}

func (r *Router) dispatch(ctx context.Context, log *logrus.Entry, command string, args []string) string {
	handler, exists := r.handlers[command]
	if !exists {
		log.Warn("Unknown command")
		return "❓ Unknown command. Use /help to see available commands."
	}

	reply, err := handler.Handle(ctx, args)
	if err != nil {
		log.WithError(err).Error("Command handler failed")
		return "❌ " + err.Error()
	}
	return reply
}
