package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(upd)
}

func textUpdate(userID int64) tele.Update {
	user := &tele.User{ID: userID}
	return tele.Update{ID: 7, Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: userID}, Text: "hi"}}
}

func TestRecoverReturnsPanicAsError(t *testing.T) {
	h := Recover(func(tele.Context) error { panic("boom") })
	err := h(newContext(t, textUpdate(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRateLimitPerUser(t *testing.T) {
	var handled, limited int
	mw := RateLimit(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(newContext(t, textUpdate(1))))
	require.NoError(t, h(newContext(t, textUpdate(1))))
	require.NoError(t, h(newContext(t, textUpdate(2))))
	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, limited)

	cb := tele.Update{Callback: &tele.Callback{Sender: &tele.User{ID: 1}, Data: "x"}}
	require.NoError(t, h(newContext(t, cb)))
	assert.Equal(t, 3, handled)
}

func TestObserveAndLogger(t *testing.T) {
	var kinds []string
	var seen error
	boom := errors.New("boom")
	h := Logger(nil)(Observe(func(kind string, _ time.Duration, err error) {
		kinds = append(kinds, kind)
		seen = err
	})(func(tele.Context) error { return boom }))

	c := newContext(t, textUpdate(3))
	assert.ErrorIs(t, h(c), boom)
	assert.Equal(t, []string{"message"}, kinds)
	assert.ErrorIs(t, seen, boom)
	assert.False(t, Started(c).IsZero())
}
