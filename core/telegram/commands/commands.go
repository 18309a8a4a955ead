package commands

import tele "gopkg.in/telebot.v4"

// Command is a slash command the bot answers.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Hidden commands work but are left out of the Telegram command menu.
	Hidden bool
	// Aliases are plain texts routed to the command, such as reply keyboard labels.
	Aliases []string
}
