// Package notify delivers best-effort admin messages. Delivery providers
// live behind the Notifier interface; the engine never depends on one
// directly.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends one message to the administrator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Telegram sends admin notifications to a fixed chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects the bot. Returns an error when the token is invalid.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Notify(_ context.Context, text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
	return err
}
