// Package present decides what the bot shows: reply texts and keyboard layouts
// built from domain data. Turning a Response into Telegram markup is left to the transport.
package present

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/notesbot/core/telegram/format"
	"github.com/m3rciful/notesbot/core/telegram/keyboard"
	"github.com/m3rciful/notesbot/internal/callback"
	"github.com/m3rciful/notesbot/internal/model"
)

// Reply keyboard labels that start or show a flow.
const (
	TriggerHelp           = "Help"
	TriggerAddCategory    = "Add a new category"
	TriggerShowCategories = "Show categories"
)

// RowWidth is the number of category buttons per keyboard row.
const RowWidth = 3

const (
	// MaxMessageLen is Telegram's limit on the text of one message, in characters.
	MaxMessageLen = 4096
	// NotePreviewLen caps each note in a category listing.
	NotePreviewLen = 300
)

// Button is a keyboard key. Inline buttons carry a callback token;
// reply buttons send their label back as text.
type Button struct {
	Label string
	Token string
}

// Keyboard is a grid of buttons attached to a reply.
type Keyboard struct {
	Inline bool
	Rows   [][]Button
}

// Response is one outbound message. Markdown texts are MarkdownV2.
type Response struct {
	Text     string
	Markdown bool
	Keyboard *Keyboard
}

const helpText = `/start - show the main menu
/help - list of commands
/add_cat - add a new category
/show_cat - show my categories
/note <text> - save a text note

Forward any message to me to file it under one of your categories.`

// MainMenu greets the user and attaches the reply keyboard with all triggers.
func MainMenu(name string) *Response {
	greeting := "Hello there!"
	if name = strings.TrimSpace(name); name != "" {
		greeting = fmt.Sprintf("Hello, %s!", name)
	}
	return &Response{
		Text: greeting + "\nForward me a message to save it as a note, or use the menu below.",
		Keyboard: &Keyboard{Rows: [][]Button{
			{{Label: TriggerHelp}, {Label: TriggerAddCategory}},
			{{Label: TriggerShowCategories}},
		}},
	}
}

// Help lists the commands.
func Help() *Response {
	return &Response{Text: helpText}
}

// AskCategoryName prompts for the name of a new category.
func AskCategoryName() *Response {
	return &Response{Text: "Name the new category!"}
}

// EmptyCategoryName rejects a blank name; the prompt stays open.
func EmptyCategoryName() *Response {
	return &Response{Text: "The category name can't be empty. Send me a name."}
}

// CategoryNameTooLong rejects a name over limit characters; the prompt stays open.
func CategoryNameTooLong(limit int) *Response {
	return &Response{Text: fmt.Sprintf("The category name is too long, keep it under %d characters.", limit)}
}

// CategoryCreated confirms a category. An already existing one is confirmed the same way.
func CategoryCreated(name string, created bool) *Response {
	text := "Category *%s* created\\."
	if !created {
		text = "Category *%s* is ready\\."
	}
	return &Response{Text: fmt.Sprintf(text, escape(name)), Markdown: true}
}

// NoCategoriesForNote explains that a note needs a category first.
func NoCategoriesForNote() *Response {
	return &Response{Text: "You have no categories yet, create one first."}
}

// NoteEmpty reports that there is no content to save.
func NoteEmpty() *Response {
	return &Response{Text: "The note is empty. Forward me a message with text or a caption."}
}

// CategoryPicker asks which category a captured note goes to.
func CategoryPicker(cats []model.Category) *Response {
	return &Response{
		Text:     "Choose a category for this note:",
		Keyboard: &Keyboard{Inline: true, Rows: Grid(cats, callback.ChooseNoteCategory, RowWidth)},
	}
}

// NoteSaved confirms a stored note.
func NoteSaved() *Response {
	return &Response{Text: "Note saved."}
}

// CategoryGone reports a category deleted while the user was choosing it.
func CategoryGone() *Response {
	return &Response{Text: "This category is no longer available."}
}

// CategoryList shows the user's categories as buttons.
func CategoryList(cats []model.Category) *Response {
	if len(cats) == 0 {
		return &Response{Text: "You have no categories yet."}
	}
	return &Response{
		Text:     "Your categories:",
		Keyboard: &Keyboard{Inline: true, Rows: Grid(cats, callback.SelectCategory, RowWidth)},
	}
}

// CategoryNotes lists the latest notes of a category. Long notes are cut to
// NotePreviewLen and the listing stops before it would exceed MaxMessageLen.
func CategoryNotes(cat model.Category, notes []model.Note) *Response {
	if len(notes) == 0 {
		return &Response{Text: fmt.Sprintf("*%s* has no notes yet\\.", escape(cat.Name)), Markdown: true}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*:\n", escape(cat.Name))
	size := utf8.RuneCountInString(b.String())
	for i, n := range notes {
		line := fmt.Sprintf("\n%d\\. %s", i+1, escape(preview(n.Content, NotePreviewLen)))
		rest := ""
		if left := len(notes) - i - 1; left > 0 {
			rest = moreNotes(left)
		}
		lineLen := utf8.RuneCountInString(line)
		if size+lineLen+utf8.RuneCountInString(rest) > MaxMessageLen {
			b.WriteString(moreNotes(len(notes) - i))
			break
		}
		b.WriteString(line)
		size += lineLen
	}
	return &Response{Text: b.String(), Markdown: true}
}

func moreNotes(n int) string {
	return fmt.Sprintf("\n\n…and %d more", n)
}

// preview cuts s to at most limit runes, marking the cut with an ellipsis.
func preview(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

// NotForwarded answers media sent directly instead of forwarded.
func NotForwarded() *Response {
	return &Response{Text: "Forward a message to me to save it as a note."}
}

// TryAgain is the reply to any storage failure.
func TryAgain() *Response {
	return &Response{Text: "Something went wrong, please try again."}
}

// BadButton is the reply to a button that could not be understood.
func BadButton() *Response {
	return &Response{Text: "This button is no longer valid."}
}

// Grid lays out one button per category, width buttons per row, in the given order.
func Grid(cats []model.Category, action callback.Action, width int) [][]Button {
	buttons := make([]Button, len(cats))
	for i, c := range cats {
		buttons[i] = Button{Label: c.Name, Token: callback.MustEncode(action, c.ID)}
	}
	return keyboard.Chunk(buttons, width)
}

func escape(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV2)
	if err != nil {
		return s
	}
	return out
}
