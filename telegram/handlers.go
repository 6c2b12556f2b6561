package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/TG-16/anonymous-telegram-bot/chat"
	"github.com/TG-16/anonymous-telegram-bot/logger"
	"github.com/TG-16/anonymous-telegram-bot/telegram/keyboard"
	"github.com/TG-16/anonymous-telegram-bot/telegram/middleware"
)

// event is a coordinator entry point bound to a bot endpoint.
type event func(ctx context.Context, uid string) error

// Routes binds the session coordinator to telebot endpoints: one route per
// command plus the text route that handles the reply-keyboard buttons and
// plain relay messages.
func Routes(co *chat.Coordinator) []Route {
	routes := []Route{
		{Endpoint: "/start", Handler: handle("start", co.OnStart)},
		{Endpoint: "/find", Handler: handle("find", co.OnFind)},
		{Endpoint: "/stop", Handler: handle("stop", co.OnStop)},
		{Endpoint: "/signup", Handler: handle("signup", co.OnSignup)},
		{Endpoint: "/login", Handler: handle("login", co.OnLogin)},
		{Endpoint: tele.OnText, Handler: textHandler(co)},
	}
	logger.Info(context.Background(), "tg", "wire.complete",
		slog.Int("routes", len(routes)),
	)
	return routes
}

// Commands lists the entries shown in the Telegram command menu.
func Commands() []tele.Command {
	return []tele.Command{
		{Text: "/start", Description: "Open the home menu"},
		{Text: "/find", Description: "Find a chat partner"},
		{Text: "/stop", Description: "End the current chat"},
		{Text: "/signup", Description: "Create an account"},
		{Text: "/login", Description: "Log into your account"},
	}
}

// textHandler routes incoming plain text: keyboard button presses map to
// their commands, unknown slash-prefixed text is ignored, anything else is a
// relay message for the current partner.
func textHandler(co *chat.Coordinator) tele.HandlerFunc {
	relay := func(c tele.Context) error {
		ctx := middleware.WithHandler(c, "relay")
		return co.OnMessage(ctx, senderID(c), c.Text())
	}
	return func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		switch text {
		case keyboard.BtnFind:
			return summarize(c, "find", start, func() error {
				return co.OnFind(middleware.WithHandler(c, "find"), senderID(c))
			})
		case keyboard.BtnStop:
			return summarize(c, "stop", start, func() error {
				return co.OnStop(middleware.WithHandler(c, "stop"), senderID(c))
			})
		}

		if strings.HasPrefix(text, "/") {
			// Unregistered command; never relayed to the partner.
			return nil
		}

		return summarize(c, "relay", start, func() error { return relay(c) })
	}
}

// handle adapts a coordinator event to a telebot handler with a summary log
// line. Recovery and request logging run in the global middleware chain.
func handle(name string, ev event) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		return summarize(c, name, start, func() error {
			return ev(middleware.WithHandler(c, name), senderID(c))
		})
	}
}

func summarize(c tele.Context, name string, start time.Time, fn func() error) error {
	err := fn()
	ctx := middleware.WithHandler(c, name)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
	return err
}

// senderID maps the Telegram sender to the opaque handle used by the state
// machine. Private chats are the only supported surface, so the sender id
// and the chat id coincide.
func senderID(c tele.Context) string {
	user := c.Sender()
	if user == nil {
		return ""
	}
	return strconv.FormatInt(user.ID, 10)
}
