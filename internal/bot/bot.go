// Package bot adapts telebot updates to conversation events and renders
// the replies back into Telegram messages.
package bot

import (
	"context"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/notesbot/core/logger"
	tg "github.com/m3rciful/notesbot/core/telegram"
	"github.com/m3rciful/notesbot/core/telegram/commands"
	"github.com/m3rciful/notesbot/core/telegram/helpers"
	"github.com/m3rciful/notesbot/core/telegram/keyboard"
	"github.com/m3rciful/notesbot/core/telegram/router"
	"github.com/m3rciful/notesbot/internal/callback"
	"github.com/m3rciful/notesbot/internal/flow"
	"github.com/m3rciful/notesbot/internal/present"
)

// MalformedKey is the callback key of data that does not decode.
const MalformedKey = "malformed"

// Conversation handles one normalized event. Implemented by *flow.Dispatcher.
type Conversation interface {
	Handle(ctx context.Context, ev flow.Event) (*present.Response, error)
}

// Bot connects telebot to a Conversation.
type Bot struct {
	conv Conversation
}

// New returns a Bot serving conv.
func New(conv Conversation) *Bot {
	return &Bot{conv: conv}
}

// Register adds the commands and callback keys to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := []struct {
		name        string
		description string
		aliases     []string
	}{
		{flow.CommandStart, "Show the main menu", nil},
		{flow.CommandHelp, "List of commands", []string{present.TriggerHelp}},
		{flow.CommandAddCategory, "Add a new category", []string{present.TriggerAddCategory}},
		{flow.CommandShowCategories, "Show my categories", []string{present.TriggerShowCategories}},
		{flow.CommandNote, "Save a text note", nil},
	}
	for _, c := range cmds {
		err := reg.RegisterCommand(c.name, commands.Command{
			Handler:     b.Handle,
			Description: c.description,
			Aliases:     c.aliases,
		})
		if err != nil {
			return err
		}
	}
	for _, action := range []callback.Action{callback.SelectCategory, callback.ChooseNoteCategory} {
		if err := reg.RegisterCallback(string(action), b.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Routes returns the telebot routes for reg.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		KeyOf:    KeyOf,
		NotFound: b.Handle,
	}))
	return append(routes, router.TextRoutes(b.Handle, reg, router.TextOptions{
		UnknownMedia: b.notForwarded,
	})...)
}

// KeyOf names callback data by its action.
func KeyOf(data string) string {
	action, _, err := callback.Decode(data)
	if err != nil {
		return MalformedKey
	}
	return string(action)
}

// Handle runs the update through the conversation and sends the reply.
func (b *Bot) Handle(c tele.Context) error {
	ev, ok := Normalize(c)
	if !ok {
		return nil
	}
	ctx := helpers.Context(c)
	resp, cause := b.conv.Handle(ctx, ev)
	if cause != nil {
		logger.Debug(ctx, "bot", "flow.cause",
			slog.String("kind", ev.Kind.String()),
			slog.String("cause", cause.Error()),
		)
	}
	return Send(c, resp)
}

func (b *Bot) notForwarded(c tele.Context) error {
	return Send(c, present.NotForwarded())
}

// Normalize turns a telebot update into an Event. It reports false for
// updates without a sender or without anything the conversation reads.
func Normalize(c tele.Context) (flow.Event, bool) {
	sender := c.Sender()
	if sender == nil || sender.IsBot {
		return flow.Event{}, false
	}
	ev := flow.Event{
		UserID:      sender.ID,
		DisplayName: strings.TrimSpace(sender.FirstName + " " + sender.LastName),
		Handle:      sender.Username,
	}

	if cb := c.Callback(); cb != nil {
		ev.Kind = flow.KindButtonTap
		ev.Token = cb.Data
		return ev, true
	}

	msg := c.Message()
	if msg == nil {
		return flow.Event{}, false
	}
	switch {
	case msg.IsForwarded():
		ev.Kind = flow.KindForwarded
		ev.Forwarded = msg.Text
		if ev.Forwarded == "" {
			ev.Forwarded = msg.Caption
		}
	case strings.HasPrefix(msg.Text, "/"):
		ev.Kind = flow.KindCommand
		ev.Text = msg.Text
	case msg.Text != "":
		ev.Kind = flow.KindText
		ev.Text = msg.Text
	default:
		return flow.Event{}, false
	}
	return ev, true
}

// Send delivers resp. A nil resp sends nothing.
func Send(c tele.Context, resp *present.Response) error {
	if resp == nil {
		return nil
	}
	markup := Markup(resp.Keyboard)
	if resp.Markdown {
		return helpers.SendMD(c, resp.Text, tele.ModeMarkdownV2, markup)
	}
	return helpers.SendText(c, resp.Text, markup)
}

// Markup converts a keyboard layout into telebot markup.
func Markup(kb *present.Keyboard) *tele.ReplyMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}
	if kb.Inline {
		rows := make([][]keyboard.Button, len(kb.Rows))
		for i, row := range kb.Rows {
			rows[i] = make([]keyboard.Button, len(row))
			for j, btn := range row {
				rows[i][j] = keyboard.Button{Text: btn.Label, Data: btn.Token}
			}
		}
		return keyboard.Inline(rows...)
	}
	rows := make([][]string, len(kb.Rows))
	for i, row := range kb.Rows {
		rows[i] = make([]string, len(row))
		for j, btn := range row {
			rows[i][j] = btn.Label
		}
	}
	return keyboard.Reply(rows...)
}
