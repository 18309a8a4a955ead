package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/notesbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Main menu"}))
	require.NoError(t, reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "Help", Aliases: []string{"Help"}}))
	require.NoError(t, reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true}))

	assert.Error(t, reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/empty", commands.Command{Handler: noop}))

	assert.Equal(t, []tele.Command{
		{Text: "help", Description: "Help"},
		{Text: "start", Description: "Main menu"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)

	for _, text := range []string{"/help", "/HELP", "help", " Help "} {
		key, _, ok := reg.LookupCommand(text)
		assert.True(t, ok, text)
		assert.Equal(t, "/help", key, text)
	}
	_, _, ok := reg.LookupCommand("start")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("buy milk")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("")
	assert.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("choose", noop))
	require.NoError(t, reg.RegisterCallback("select", noop))
	assert.Error(t, reg.RegisterCallback("choose", noop))
	assert.Error(t, reg.RegisterCallback("", noop))

	assert.Equal(t, []string{"choose", "select"}, reg.ListCallbacks())
	_, ok := reg.GetCallback("select")
	assert.True(t, ok)
	_, ok = reg.GetCallback("delete")
	assert.False(t, ok)
	assert.NotNil(t, reg.CallbackNotFound())
}
