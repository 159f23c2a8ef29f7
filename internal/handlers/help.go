package handlers

import (
	"context"
)

const helpText = `🎁 chcemmat operator bot

• /reconcile - Run a reconciliation pass now
• /item <id> - Show an item's status and reservation
• /help - Show this help message

Alerts about reservations that could not be rolled back are posted to this chat.`

// HelpHandler handles the /help and /start commands
type HelpHandler struct{}

func NewHelpHandler() *HelpHandler {
	return &HelpHandler{}
}

func (h *HelpHandler) Handle(_ context.Context, _ []string) (string, error) {
	return helpText, nil
}
