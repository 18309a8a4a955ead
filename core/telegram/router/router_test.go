package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/notesbot/core/telegram"
	"github.com/m3rciful/notesbot/core/telegram/commands"
)

type codedErr struct{}

func (codedErr) Error() string { return "state store down" }
func (codedErr) Code() string  { return "state store" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "STATE_STORE", errorCode(fmt.Errorf("handle: %w", codedErr{})))
	assert.Equal(t, "PLAINERR", errorCode(&plainErr{}))
	assert.Equal(t, "ERRORSTRING", errorCode(errors.New("x")))
	assert.Empty(t, errorCode(nil))
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "add_cat", handlerName("/add_cat"))
	assert.Equal(t, "show_categories", handlerName(" Show Categories "))
	assert.Equal(t, "unknown", handlerName(""))
}

func routeFor(t *testing.T, routes []tg.Route, endpoint string) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	require.Failf(t, "route not found", "%s", endpoint)
	return nil
}

func TestTextRoutes(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	user := &tele.User{ID: 1}
	ctx := func(m *tele.Message) tele.Context {
		m.Sender, m.Chat = user, &tele.Chat{ID: 1}
		return bot.NewContext(tele.Update{ID: 3, Message: m})
	}

	var got []string
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/help", commands.Command{
		Description: "Help",
		Aliases:     []string{"Help"},
		Handler:     func(tele.Context) error { got = append(got, "help"); return nil },
	}))
	conversation := func(tele.Context) error { got = append(got, "conversation"); return nil }
	unknown := func(tele.Context) error { got = append(got, "unknown_media"); return nil }

	routes := TextRoutes(conversation, reg, TextOptions{UnknownMedia: unknown})
	assert.Len(t, routes, 1+len(mediaEndpoints))

	text := routeFor(t, routes, tele.OnText)
	require.NoError(t, text(ctx(&tele.Message{Text: "help"})))
	require.NoError(t, text(ctx(&tele.Message{Text: "groceries"})))
	require.NoError(t, routeFor(t, routes, tele.OnPhoto)(ctx(&tele.Message{Photo: &tele.Photo{}})))

	assert.Equal(t, []string{"help", "conversation", "unknown_media"}, got)
}

func TestCallbackRouteEndpoint(t *testing.T) {
	route := CallbackRoute(tg.NewRegistry(), CallbackOptions{})
	assert.Equal(t, tele.OnCallback, route.Endpoint)
	assert.NotNil(t, route.Handler)
}
