package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/core/telegram/sender"
)

var queue atomic.Pointer[sender.Queue]

// SetQueue routes helper sends through q. A nil q sends synchronously.
func SetQueue(q *sender.Queue) {
	queue.Store(q)
}

const (
	repliesKey  = "replies"
	keyboardKey = "replies_kb"
)

// Replies reports how many messages were sent for the update and whether any carried a keyboard.
func Replies(c tele.Context) (int, bool) {
	n, _ := c.Get(repliesKey).(int)
	kb, _ := c.Get(keyboardKey).(bool)
	return n, kb
}

func count(c tele.Context, markup *tele.ReplyMarkup) {
	n, _ := c.Get(repliesKey).(int)
	c.Set(repliesKey, n+1)
	if markup != nil {
		c.Set(keyboardKey, true)
	}
}

func send(c tele.Context, action string, run func() error) error {
	q := queue.Load()
	if q == nil {
		return run()
	}
	ctx := Context(c)
	err := q.Enqueue(ctx, action, "sendMessage", run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends plain text with optional reply markup.
func SendText(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ReplyMarkup: markup}
	count(c, markup)
	return send(c, "send.text", func() error { return c.Send(text, opts) })
}

// SendMD sends text in the given Markdown parse mode with optional reply markup.
func SendMD(c tele.Context, text string, mode tele.ParseMode, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: mode, ReplyMarkup: markup}
	count(c, markup)
	return send(c, "send.md", func() error { return c.Send(text, opts) })
}
