// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient and returns the
// sent message id.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) (int, error) {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID} // Direct user chat
	msg, err := tba.bot.Send(recipient, text, options)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// PinMessage pins a previously sent message without a notification sound.
func (tba *TelebotAdapter) PinMessage(chatID int64, messageID int) error {
	editable := &telebot.Message{ID: messageID, Chat: &telebot.Chat{ID: chatID}}
	return tba.bot.Pin(editable, telebot.Silent)
}

// UnpinMessage removes a pinned message from the chat.
func (tba *TelebotAdapter) UnpinMessage(chatID int64, messageID int) error {
	return tba.bot.Unpin(&telebot.Chat{ID: chatID}, messageID)
}
