// Package middleware holds the global handler chain of the bot.
package middleware

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/core/telegram/callbacks"
	"github.com/m3rciful/notesbot/core/telegram/helpers"
)

const startKey = "update_start"

// Logger attaches the update context and logs a sampled receipt line.
func Logger(keyOf callbacks.KeyFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(startKey, time.Now())
			ctx := helpers.Context(c)
			if !logger.ShouldSampleDebug() {
				return next(c)
			}

			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", UpdateKind(c)),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user := c.Sender(); user != nil {
				if user.Username != "" {
					attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
				}
				if user.LanguageCode != "" {
					attrs = append(attrs, slog.String("lang", user.LanguageCode))
				}
			}
			if cb := c.Callback(); cb != nil {
				key, payload := callbacks.Split(cb, keyOf)
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 64)))
				if payload != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 64)))
				}
			} else if t := c.Text(); t != "" {
				attrs = append(attrs, slog.Int("text_len", len([]rune(t))))
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
			return next(c)
		}
	}
}

// Started returns when Logger saw the update, or the zero time.
func Started(c tele.Context) time.Time {
	t, _ := c.Get(startKey).(time.Time)
	return t
}

// UpdateKind labels an update as "callback", "message" or "other".
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}
