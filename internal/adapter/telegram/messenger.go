// Package telegram delivers alert messages to subscribers through the
// Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
)

// sender is the slice of the bot API the messenger uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Messenger sends Markdown-formatted alert messages to chat ids.
type Messenger struct {
	bot    sender
	logger *slog.Logger
}

// New creates a Messenger. The constructor calls getMe, so an invalid bot
// token fails here rather than on the first delivery.
func New(token string, logger *slog.Logger) (*Messenger, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}
	logger.Info("telegram client ready", "username", bot.Self.UserName)
	return &Messenger{bot: bot, logger: logger}, nil
}

// Send delivers one message. A 403 from Telegram means the recipient
// blocked the bot or deleted their account; that is reported as
// domain.ErrDeliveryFailed so the dispatcher deactivates the subscriber.
// Other failures are transient and leave the subscriber untouched.
func (m *Messenger) Send(ctx context.Context, chatID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := m.bot.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: chat %s: %v", domain.ErrDeliveryFailed, chatID, err)
		}
		return fmt.Errorf("send to chat %s: %w", chatID, err)
	}
	return nil
}
