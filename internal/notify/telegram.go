// Package notify pushes operator alerts to the support Telegram channel.
// It only carries escalations that left the automatic flow; participant
// traffic stays on the booking channels.
package notify

import (
	"fmt"
	"log"

	"dapbuddy/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends mediation alerts to a fixed ops chat.
type TelegramNotifier struct {
	BotAPI    *tgbotapi.BotAPI
	OpsChatID int64
}

// NewTelegramNotifier creates a notifier for the given bot token and ops
// chat.
func NewTelegramNotifier(token string, opsChatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("✅ Ops notifier authorized on account %s", bot.Self.UserName)

	return &TelegramNotifier{BotAPI: bot, OpsChatID: opsChatID}, nil
}

// AlertEscalation notifies operators that an exchange reached
// human_intervention_required and a mediation case is waiting.
func (n *TelegramNotifier) AlertEscalation(c *models.MediationCase) error {
	text := fmt.Sprintf(
		"⚠️ Mediation required\nCase: %s\nBooking: %s\nExchange: %s\nReported reasons: %d",
		c.CaseID, c.BookingID, c.ExchangeID, len(c.Reasons),
	)
	msg := tgbotapi.NewMessage(n.OpsChatID, text)
	_, err := n.BotAPI.Send(msg)
	return err
}
