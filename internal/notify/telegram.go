// Package notify forwards rooftop decision outcomes to a Telegram
// chat. Delivery is best effort: failures are logged and never
// propagate into the command that triggered them.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"waschplan/internal/events"
	"waschplan/internal/models"
)

// TelegramNotifier posts decision messages to a fixed chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

// NewTelegramNotifier authorizes the bot.
func NewTelegramNotifier(token string, chatID int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("Telegram notifier authorized")
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// Subscribe attaches the notifier to the event bus.
func (n *TelegramNotifier) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.RequestSubmitted, n.onRequest)
	bus.Subscribe(events.RequestApproved, n.onRequest)
	bus.Subscribe(events.RequestRejected, n.onRequest)
	bus.Subscribe(events.RequestCancelled, n.onRequest)
}

func (n *TelegramNotifier) onRequest(event events.Event) {
	request, ok := event.Payload.(*models.RooftopRequest)
	if !ok {
		return
	}
	n.send(formatRequest(event.Type, request))
}

func formatRequest(eventType string, r *models.RooftopRequest) string {
	date := models.FormatDate(r.Date)
	switch eventType {
	case events.RequestSubmitted:
		return fmt.Sprintf("🆕 Rooftop request #%d: room %s for %s", r.ID, r.RoomNumber, date)
	case events.RequestApproved:
		return fmt.Sprintf("✅ Rooftop request #%d approved: room %s on %s", r.ID, r.RoomNumber, date)
	case events.RequestRejected:
		return fmt.Sprintf("❌ Rooftop request #%d rejected (%s): room %s, %s",
			r.ID, r.DecisionReason, r.RoomNumber, date)
	case events.RequestCancelled:
		return fmt.Sprintf("🚫 Rooftop request #%d withdrawn by room %s (%s)", r.ID, r.RoomNumber, date)
	}
	return fmt.Sprintf("Rooftop request #%d: %s", r.ID, eventType)
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Warn().Err(err).Msg("Telegram notification failed")
	}
}
