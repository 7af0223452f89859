// Package notify pushes grievance status updates to submitters who linked a
// Telegram chat to their account.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gramseva/backend/internal/models"
	"gramseva/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier listens on the grievance event stream and sends one-way
// notifications. It never drives the lifecycle.
type TelegramNotifier struct {
	Bot     *tgbotapi.BotAPI
	Storage *storage.Service
}

// NewTelegramNotifier authenticates the bot. Returns an error when the token
// is rejected; callers should treat an empty token as "notifications off"
// and not construct a notifier at all.
func NewTelegramNotifier(token string, s *storage.Service) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Printf("Telegram notifier authorized as %s", bot.Self.UserName)
	return &TelegramNotifier{Bot: bot, Storage: s}, nil
}

// Run consumes the Redis event stream and notifies the affected submitter.
func (n *TelegramNotifier) Run(ctx context.Context) {
	pubsub := n.Storage.SubscribeEvents()
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.GrievanceEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("ERROR: Notifier failed to unmarshal event: %v", err)
				continue
			}
			n.notify(ev)
		}
	}
}

func (n *TelegramNotifier) notify(ev models.GrievanceEvent) {
	g, err := n.Storage.GetGrievance(ev.GrievanceID)
	if err != nil || g == nil {
		return
	}
	user, err := n.Storage.GetUserByID(g.UserID)
	if err != nil || user == nil || user.TelegramChatID == nil {
		return
	}

	text := fmt.Sprintf("Grievance *%s*: %s\nStatus: %s", ev.GrievanceNumber, eventText(ev.EventType), g.Status)
	msg := tgbotapi.NewMessage(*user.TelegramChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.Bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send Telegram notification for grievance %s: %v", g.ID, err)
	}
}

func eventText(eventType string) string {
	switch eventType {
	case models.EventGrievanceSubmitted:
		return "submitted and awaiting an officer"
	case models.EventTaskAccepted:
		return "accepted by an officer"
	case models.EventStatusUpdated:
		return "status updated"
	case models.EventGrievanceVerified, models.EventOwnerVerification:
		return "resolution verified"
	case models.EventGrievanceEscalated:
		return "escalated to a higher authority"
	case models.EventLockedForAdmin:
		return "under administrative review"
	case models.EventUserSatisfaction:
		return "satisfaction recorded"
	default:
		return "updated"
	}
}
