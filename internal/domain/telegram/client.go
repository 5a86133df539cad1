package telegram

import (
	"gopkg.in/telebot.v3"
)

// Client abstracts outbound Telegram operations for application services.
// SendMessage returns the sent message id so daily reports can be pinned.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) (int, error)
	PinMessage(chatID int64, messageID int) error
	UnpinMessage(chatID int64, messageID int) error
}
