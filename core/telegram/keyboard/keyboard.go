// Package keyboard builds telebot reply markups.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline key whose Data comes back verbatim as callback data.
type Button struct {
	Text string
	Data string
}

// Reply builds a resized reply keyboard from rows of labels.
func Reply(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, labels := range rows {
		row := make(tele.Row, 0, len(labels))
		for _, label := range labels {
			row = append(row, markup.Text(label))
		}
		keyboard = append(keyboard, row)
	}
	markup.Reply(keyboard...)
	return markup
}

// Inline builds an inline keyboard. Buttons are sent without a telebot Unique,
// so taps arrive on tele.OnCallback with Data untouched.
func Inline(rows ...[]Button) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		keys := make([]tele.InlineButton, len(row))
		for i, b := range row {
			keys[i] = tele.InlineButton{Text: b.Text, Data: b.Data}
		}
		inline = append(inline, keys)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// Remove hides the reply keyboard.
func Remove() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// Chunk splits items into rows of at most n.
func Chunk[T any](items []T, n int) [][]T {
	if n <= 0 {
		n = 1
	}
	rows := make([][]T, 0, (len(items)+n-1)/n)
	for i := 0; i < len(items); i += n {
		rows = append(rows, items[i:min(i+n, len(items))])
	}
	return rows
}
