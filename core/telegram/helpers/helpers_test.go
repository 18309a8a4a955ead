package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/notesbot/core/logger"
)

func TestContextCarriesUpdateMeta(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	c := bot.NewContext(tele.Update{ID: 11, Message: &tele.Message{
		Sender: &tele.User{ID: 5},
		Chat:   &tele.Chat{ID: 9},
	}})

	ctx := Context(c)
	assert.Equal(t, "11:9:5", logger.RIDFrom(ctx))
	assert.EqualValues(t, 5, logger.UserIDFrom(ctx))
	assert.EqualValues(t, 9, logger.ChatIDFrom(ctx))

	ctx = WithHandler(c, "note")
	assert.Equal(t, "note", logger.HandlerFrom(Context(c)))
	assert.Equal(t, logger.RIDFrom(ctx), logger.RIDFrom(Context(c)))

	n, kb := Replies(c)
	assert.Zero(t, n)
	assert.False(t, kb)
	count(c, &tele.ReplyMarkup{})
	count(c, nil)
	n, kb = Replies(c)
	assert.Equal(t, 2, n)
	assert.True(t, kb)
}
