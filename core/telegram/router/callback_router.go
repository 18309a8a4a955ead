package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/notesbot/core/telegram"
	"github.com/m3rciful/notesbot/core/telegram/callbacks"
)

// CallbackOptions configures CallbackRoute.
type CallbackOptions struct {
	// KeyOf derives the registry key from raw button data.
	KeyOf    callbacks.KeyFunc
	NotFound tele.HandlerFunc
}

// CallbackRoute answers every button tap and routes it by key through reg.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		_ = c.Respond()

		key, _ := callbacks.Split(cb, opts.KeyOf)
		name := "callback." + handlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		h, ok := reg.GetCallback(key)
		if !ok {
			h = reg.CallbackNotFound()
			if opts.NotFound != nil {
				h = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
		}
		if h == nil {
			summary(c, name, start, "skip", nil, extras...)
			return nil
		}
		return handled(c, name, start, func() error { return h(c) }, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
