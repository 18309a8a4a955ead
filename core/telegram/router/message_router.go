package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/notesbot/core/telegram"
)

// TextOptions configures TextRoutes.
type TextOptions struct {
	// UnknownMedia answers media that is not a forward.
	UnknownMedia tele.HandlerFunc
}

var mediaEndpoints = []string{
	tele.OnPhoto,
	tele.OnVideo,
	tele.OnDocument,
	tele.OnAudio,
	tele.OnVoice,
	tele.OnAnimation,
}

// TextRoutes routes plain text and media. Forwards always reach conversation.
// Other text goes to a registry command when it names one (aliases included)
// and to conversation otherwise.
func TextRoutes(conversation tele.HandlerFunc, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		msg := c.Message()
		if msg != nil && !msg.IsForwarded() && reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return handled(c, handlerName(key), start, func() error { return cmd.Handler(c) })
			}
		}
		if conversation == nil {
			summary(c, "conversation", start, "skip", nil)
			return nil
		}
		return handled(c, "conversation", start, func() error { return conversation(c) })
	}

	media := func(c tele.Context) error {
		start := time.Now()
		if msg := c.Message(); msg != nil && msg.IsForwarded() && conversation != nil {
			return handled(c, "conversation", start, func() error { return conversation(c) })
		}
		if opts.UnknownMedia != nil {
			return handled(c, "unknown_media", start, func() error { return opts.UnknownMedia(c) })
		}
		summary(c, "unknown_media", start, "skip", nil)
		return nil
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: text}}
	for _, ep := range mediaEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: media})
	}
	return routes
}
