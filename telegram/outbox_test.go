package telegram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TG-16/anonymous-telegram-bot/chat"
	"github.com/TG-16/anonymous-telegram-bot/telegram/keyboard"
)

func TestMarkupForHints(t *testing.T) {
	require.Nil(t, markupFor(chat.HintNone))

	for _, hint := range []chat.UIHint{chat.HintHome, chat.HintConnected, chat.HintPersistent} {
		markup := markupFor(hint)
		require.NotNil(t, markup)
		require.True(t, markup.ResizeKeyboard)
		require.Len(t, markup.ReplyKeyboard, 1)
		require.Len(t, markup.ReplyKeyboard[0], 2)
		require.Equal(t, keyboard.BtnFind, markup.ReplyKeyboard[0][0].Text)
		require.Equal(t, keyboard.BtnStop, markup.ReplyKeyboard[0][1].Text)
	}
}

func TestSendTextRequiresAttachedBot(t *testing.T) {
	o := NewOutbox(nil)
	err := o.SendText(context.Background(), "42", "hello", chat.HintNone)
	require.ErrorContains(t, err, "not attached")
}
