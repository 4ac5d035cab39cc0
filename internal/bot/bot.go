// Package bot implements the admin chat bot: an in-memory mirror of the order
// store, rendered as Telegram messages with buttons that change or delete
// orders.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/imrishuroy/shop-orderflow/internal/events"
	"github.com/imrishuroy/shop-orderflow/internal/orders"
	"github.com/imrishuroy/shop-orderflow/internal/telegram"
)

// ErrUnauthorized is returned when a chat other than the admin's talks to the
// bot.
var ErrUnauthorized = errors.New("sender is not the administrator")

// Bot dispatches commands and button presses against its Mirror. All methods
// must be called from one goroutine, which Run provides.
type Bot struct {
	client  telegram.Client
	repo    orders.Repository
	mirror  *Mirror
	adminID int64
	logger  *slog.Logger
	loc     *time.Location
}

// New returns a Bot answering only to adminID.
func New(client telegram.Client, repo orders.Repository, mirror *Mirror, adminID int64, logger *slog.Logger, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		client:  client,
		repo:    repo,
		mirror:  mirror,
		adminID: adminID,
		logger:  logger,
		loc:     loc,
	}
}

// Run handles Telegram updates and new-order events one at a time until ctx
// is done or updates is closed. A nil newOrders channel is never selected.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update, newOrders <-chan events.NewOrder) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return errors.New("telegram updates channel closed")
			}
			if err := b.HandleUpdate(ctx, u); err != nil {
				b.logger.Error("handle update", "update_id", u.UpdateID, "error", err)
			}
		case ev := <-newOrders:
			if err := b.HandleNewOrder(ctx, ev); err != nil {
				b.logger.Error("handle new order", "order_id", ev.Order.ID, "error", err)
			}
		}
	}
}

// Forward returns an events.Handler that hands events to the Run loop through
// ch. It blocks until the loop takes the event or ctx is done.
func Forward(ch chan<- events.NewOrder) events.Handler {
	return func(ctx context.Context, ev events.NewOrder) error {
		select {
		case ch <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandleUpdate dispatches one update. Only commands and callback queries are
// acted on.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) error {
	switch {
	case u.CallbackQuery != nil:
		return b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.IsCommand():
		return b.handleCommand(u.Message)
	}
	return nil
}

// HandleNewOrder puts a freshly submitted order into the mirror and tells the
// administrator about it.
func (b *Bot) HandleNewOrder(ctx context.Context, ev events.NewOrder) error {
	b.mirror.Upsert(ev.Order)
	b.logger.Info("new order mirrored", "order_id", ev.Order.ID, "event_id", ev.EventID)
	return b.send(b.adminID, newOrderView(ev.Order))
}

func (b *Bot) authorize(chatID int64) error {
	if chatID != b.adminID {
		return fmt.Errorf("%w: chat %d", ErrUnauthorized, chatID)
	}
	return nil
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if err := b.authorize(chatID); err != nil {
		b.logger.Warn("command denied", "command", msg.Command(), "error", err)
		return b.send(chatID, view{text: textDenied})
	}

	switch msg.Command() {
	case "start":
		return b.send(chatID, startView())
	case "orders":
		return b.sendList(chatID, FilterAll)
	case "new":
		return b.sendList(chatID, Filter(orders.StatusNew))
	case "stats":
		return b.send(chatID, statsView(b.mirror.Stats(), false))
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	chatID, messageID := callbackOrigin(q)
	if err := b.authorize(chatID); err != nil {
		b.logger.Warn("callback denied", "data", q.Data, "error", err)
		return b.answer(q, textDenied, true)
	}

	act, err := ParseAction(q.Data)
	if err != nil {
		b.logger.Warn("bad callback data", "data", q.Data, "error", err)
		return b.answer(q, textUnknownAction, true)
	}

	switch a := act.(type) {
	case ShowList:
		b.request(tgbotapi.NewEditMessageText(chatID, messageID, textLoading))
		return errors.Join(b.answer(q, "", false), b.sendList(chatID, a.Filter))

	case OpenOrder:
		b.request(tgbotapi.NewDeleteMessage(chatID, messageID))
		return errors.Join(b.answer(q, "", false), b.sendDetail(chatID, a.ID))

	case SetStatus:
		if cur, ok := b.mirror.Get(a.ID); ok && !cur.Status.CanTransitionTo(a.Status) {
			b.logger.Warn("status transition refused", "order_id", a.ID, "from", cur.Status, "to", a.Status)
			return b.answer(q, textUpdateFailed, true)
		}
		updated, err := b.repo.UpdateStatus(ctx, a.ID, a.Status)
		if err != nil {
			b.logger.Error("update order status", "order_id", a.ID, "status", a.Status, "error", err)
			text := textUpdateFailed
			if errors.Is(err, orders.ErrNotFound) {
				text = textNotFound
			}
			return b.answer(q, text, true)
		}
		b.mirror.Upsert(*updated)
		b.logger.Info("order status changed", "order_id", a.ID, "status", a.Status)
		return errors.Join(b.answer(q, statusChangedText(a.Status), true), b.sendDetail(chatID, a.ID))

	case DeleteOrder:
		if err := b.repo.Delete(ctx, a.ID); err != nil {
			b.logger.Error("delete order", "order_id", a.ID, "error", err)
			return b.answer(q, textDeleteFailed, true)
		}
		b.mirror.Remove(a.ID)
		b.logger.Info("order deleted", "order_id", a.ID)
		err := b.answer(q, textDeleted, true)
		b.request(tgbotapi.NewDeleteMessage(chatID, messageID))
		return errors.Join(err, b.sendList(chatID, FilterAll))

	case ShowStats:
		b.request(tgbotapi.NewDeleteMessage(chatID, messageID))
		return errors.Join(b.answer(q, "", false), b.send(chatID, statsView(b.mirror.Stats(), true)))

	case Refresh:
		if err := b.mirror.Reload(ctx, b.repo); err != nil {
			b.logger.Error("refresh orders", "error", err)
			return b.answer(q, textReloadFailed, true)
		}
		b.logger.Info("orders reloaded", "count", b.mirror.Len())
		return errors.Join(b.answer(q, textRefreshed, true), b.sendList(chatID, FilterAll))
	}
	return b.answer(q, textUnknownAction, true)
}

// callbackOrigin returns the chat and message the pressed button belongs to.
// Inline-mode callbacks carry no message; the sender's id is used instead.
func callbackOrigin(q *tgbotapi.CallbackQuery) (chatID int64, messageID int) {
	if q.Message != nil && q.Message.Chat != nil {
		return q.Message.Chat.ID, q.Message.MessageID
	}
	if q.From != nil {
		return q.From.ID, 0
	}
	return 0, 0
}

func (b *Bot) sendList(chatID int64, f Filter) error {
	return b.send(chatID, listView(b.mirror.Filter(f), f))
}

// sendDetail renders the order from the mirror; the store is not consulted.
func (b *Bot) sendDetail(chatID, id int64) error {
	o, ok := b.mirror.Get(id)
	if !ok {
		return b.send(chatID, view{text: textNotFound})
	}
	return b.send(chatID, detailView(o, b.loc))
}

func (b *Bot) send(chatID int64, v view) error {
	msg := tgbotapi.NewMessage(chatID, v.text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if v.keyboard != nil {
		msg.ReplyMarkup = *v.keyboard
	}
	if _, err := b.client.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// answer acknowledges a callback query. Every callback gets exactly one.
func (b *Bot) answer(q *tgbotapi.CallbackQuery, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(q.ID, text)
	cfg.ShowAlert = alert
	if _, err := b.client.Request(cfg); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// request performs a cosmetic call such as editing or deleting the pressed
// message. Failures are logged only.
func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.client.Request(c); err != nil {
		b.logger.Warn("telegram request", "error", err)
	}
}
