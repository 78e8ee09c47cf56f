package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog/log"

	"github.com/drakos74/goldmind/internal/api"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot pushes trade notifications to a telegram chat.
// It implements api.Publisher but only relays executed trades, the rest of
// the event stream stays on the websocket.
type Bot struct {
	bot    botAPI
	chatID int64
}

// NewBot creates a notifier for the given bot token and chat.
func NewBot(token string, chatID int64) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	bot.Buffer = 0
	return &Bot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// Publish implements api.Publisher.
func (b *Bot) Publish(event *api.Event) {
	if event == nil || event.Type != api.TradeEvent {
		return
	}
	text := fmt.Sprintf("[%s] %s", event.Account, event.Message)
	if _, err := b.bot.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		log.Warn().Err(err).Str("account", event.Account).Msg("could not send telegram message")
	}
}
