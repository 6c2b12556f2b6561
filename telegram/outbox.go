package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/TG-16/anonymous-telegram-bot/chat"
	"github.com/TG-16/anonymous-telegram-bot/logger"
	"github.com/TG-16/anonymous-telegram-bot/telegram/keyboard"
	tgsender "github.com/TG-16/anonymous-telegram-bot/telegram/sender"
)

// Outbox implements chat.Sender on top of telebot and the async dispatcher.
// The bot instance is attached once the runtime has built it; the zero value
// rejects sends until then.
type Outbox struct {
	bot  atomic.Pointer[tele.Bot]
	disp *tgsender.Dispatcher
}

// NewOutbox returns an Outbox that routes sends through disp. A nil
// dispatcher sends synchronously.
func NewOutbox(disp *tgsender.Dispatcher) *Outbox {
	return &Outbox{disp: disp}
}

// Attach wires the live bot; called from the run-start hook.
func (o *Outbox) Attach(bot *tele.Bot) {
	o.bot.Store(bot)
}

// SendText delivers text to a user, rendering the UI hint as the matching
// reply keyboard. The dispatcher retries transient failures; when its queue
// is saturated the send falls back to the calling goroutine so messages are
// not dropped.
func (o *Outbox) SendText(ctx context.Context, userID, text string, hint chat.UIHint) error {
	bot := o.bot.Load()
	if bot == nil {
		return fmt.Errorf("telegram: outbox not attached")
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: bad user id %q: %w", userID, err)
	}

	markup := markupFor(hint)
	recipient := &tele.User{ID: id}
	run := func() error {
		var sendErr error
		if markup != nil {
			_, sendErr = bot.Send(recipient, text, markup)
		} else {
			_, sendErr = bot.Send(recipient, text)
		}
		return sendErr
	}

	if o.disp == nil {
		return run()
	}
	if err := o.disp.Enqueue(ctx, "send.text", "sendMessage", run); err != nil {
		if errors.Is(err, tgsender.ErrQueueFull) || errors.Is(err, tgsender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", "send.text"),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// markupFor maps abstract UI hints onto concrete keyboards. Every prompt
// variant currently carries the persistent Find/Stop controls; relayed chat
// text goes bare so the partner sees only the message.
func markupFor(hint chat.UIHint) *tele.ReplyMarkup {
	switch hint {
	case chat.HintHome, chat.HintConnected, chat.HintPersistent:
		return keyboard.Controls()
	default:
		return nil
	}
}
