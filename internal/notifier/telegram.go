package notifier

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/pkg/logger"
)

// TelegramNotificator forwards operator notifications to a Telegram chat, so
// a failed sync channel or an expired session is visible even when nobody is
// looking at the console.
type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot
	chatID string
}

func NewTelegramNotificator(logger *logger.Logger, token, chatID string) (*TelegramNotificator, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotificator{
		logger: logger,
		bot:    b,
		chatID: chatID,
	}, nil
}

func (t *TelegramNotificator) Send(level models.NotificationLevel, message string) {
	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   fmt.Sprintf("[%s] %s", level, message),
	}
	_, err := t.bot.SendMessage(context.Background(), params)
	if err != nil {
		t.logger.Error("Failed to send telegram notification: ", err)
	}
}
