// Package telegram is the Telegram transport: the poll-sending messenger and
// the long-polling update loop that feeds commands and answers to the runner.
package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger sends quiz polls and plain messages through the Bot API.
type Messenger struct {
	bot *tgbotapi.BotAPI
}

func NewMessenger(bot *tgbotapi.BotAPI) *Messenger {
	return &Messenger{bot: bot}
}

// SendPoll sends a non-anonymous quiz-mode poll that auto-closes after the
// answer window and returns Telegram's poll id for answer matching.
func (m *Messenger) SendPoll(_ context.Context, chatID int64, question string, options []string, correctIndex int, window time.Duration) (string, error) {
	poll := tgbotapi.NewPoll(chatID, question, options...)
	poll.Type = "quiz"
	poll.CorrectOptionID = int64(correctIndex)
	poll.IsAnonymous = false
	if window > 0 {
		poll.OpenPeriod = int(window / time.Second)
	}

	msg, err := m.bot.Send(poll)
	if err != nil {
		return "", fmt.Errorf("send poll: %w", err)
	}
	if msg.Poll == nil {
		return "", fmt.Errorf("send poll: response carries no poll")
	}
	return msg.Poll.ID, nil
}

func (m *Messenger) SendMessage(_ context.Context, chatID int64, text string) error {
	_, err := m.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
