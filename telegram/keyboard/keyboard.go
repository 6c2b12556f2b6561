// Package keyboard builds reply markup for the bot's fixed controls.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button labels for the persistent chat controls. The text router matches
// incoming messages against these exact strings.
const (
	BtnFind = "🔍 Find"
	BtnStop = "❌ Stop"
)

// Controls returns the persistent Find/Stop reply keyboard attached to the
// bot's prompts.
func Controls() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
		IsPersistent:    true,
	}
	markup.Reply(markup.Row(markup.Text(BtnFind), markup.Text(BtnStop)))
	return markup
}
