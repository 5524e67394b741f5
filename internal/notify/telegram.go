package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hyson0807/isolog/internal/logger"
	"github.com/hyson0807/isolog/internal/models"
)

var ErrTelegramNotConfigured = errors.New("telegram bot token and chat id are required")

type telegramSender interface {
	Send(message tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramDispatcher sends reminders as messages to a single chat.
type TelegramDispatcher struct {
	api    telegramSender
	chatID int64
}

func NewTelegramDispatcher(token string, chatID int64) (*TelegramDispatcher, error) {
	token = strings.TrimSpace(token)
	if token == "" || chatID == 0 {
		return nil, ErrTelegramNotConfigured
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	logger.Info("telegram: authorized", "bot", api.Self.UserName)
	return &TelegramDispatcher{api: api, chatID: chatID}, nil
}

func (dispatcher *TelegramDispatcher) Deliver(ctx context.Context, payload models.ReminderPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	message := tgbotapi.NewMessage(dispatcher.chatID, formatTelegramReminder(payload))
	message.ParseMode = tgbotapi.ModeHTML
	if _, err := dispatcher.api.Send(message); err != nil {
		return fmt.Errorf("send telegram reminder: %w", err)
	}
	return nil
}

func formatTelegramReminder(payload models.ReminderPayload) string {
	var builder strings.Builder
	icon := "💊"
	if payload.Kind == models.ReminderKindSkin {
		icon = "🧴"
	}
	builder.WriteString(icon)
	builder.WriteString(" <b>")
	builder.WriteString(html.EscapeString(payload.Title))
	builder.WriteString("</b>")
	if payload.Body != "" {
		builder.WriteString("\n")
		builder.WriteString(html.EscapeString(payload.Body))
	}
	if payload.Date != "" {
		builder.WriteString("\n<i>")
		builder.WriteString(html.EscapeString(payload.Date))
		builder.WriteString("</i>")
	}
	return builder.String()
}

// LogDispatcher only writes fired reminders to the log.
type LogDispatcher struct{}

func (LogDispatcher) Deliver(_ context.Context, payload models.ReminderPayload) error {
	logger.Info("reminder", "kind", payload.Kind, "date", payload.Date, "title", payload.Title, "delivery_id", payload.DeliveryID)
	return nil
}
