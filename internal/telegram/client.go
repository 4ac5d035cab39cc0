// Package telegram wraps the Telegram Bot API for the order notifications and
// the admin bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is the part of tgbotapi.BotAPI used by this repo.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ErrNotConfigured is returned by Notifier when no token or chat is set.
var ErrNotConfigured = errors.New("telegram notifier not configured")

// Notifier posts Markdown messages to one fixed chat. The Bot API client is
// created on first use so a cold start does not pay for getMe.
type Notifier struct {
	token  string
	chat   string
	dial   func(token string) (Client, error)
	mu     sync.Mutex
	client Client
}

// NewNotifier returns a Notifier for chat, which is a numeric chat id or an
// @channel username. Empty token or chat leave the notifier unconfigured.
func NewNotifier(token, chat string) *Notifier {
	return &Notifier{
		token: token,
		chat:  chat,
		dial: func(token string) (Client, error) {
			return tgbotapi.NewBotAPI(token)
		},
	}
}

// NewNotifierWithClient returns a Notifier that sends through client.
func NewNotifierWithClient(client Client, chat string) *Notifier {
	n := NewNotifier("injected", chat)
	n.client = client
	return n
}

// Configured reports whether the notifier has a token and a destination.
func (n *Notifier) Configured() bool {
	return n != nil && n.token != "" && n.chat != ""
}

// Notify sends text to the configured chat using Markdown formatting.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if !n.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := n.getClient()
	if err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if chatID, perr := strconv.ParseInt(n.chat, 10, 64); perr == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(n.chat, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := client.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (n *Notifier) getClient() (Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		return n.client, nil
	}
	client, err := n.dial(n.token)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	n.client = client
	return client, nil
}
