package present

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/notesbot/internal/callback"
	"github.com/m3rciful/notesbot/internal/model"
)

func cats(names ...string) []model.Category {
	out := make([]model.Category, len(names))
	for i, n := range names {
		out[i] = model.Category{ID: int64(i + 1), OwnerID: 42, Name: n}
	}
	return out
}

func TestGrid(t *testing.T) {
	rows := Grid(cats("a", "b", "c", "d"), callback.SelectCategory, RowWidth)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 3)
	assert.Equal(t, Button{Label: "d", Token: "select_category_4"}, rows[1][0])

	assert.Empty(t, Grid(nil, callback.SelectCategory, RowWidth))
	assert.Len(t, Grid(cats("a", "b"), callback.ChooseNoteCategory, 0), 2)
}

func TestMainMenu(t *testing.T) {
	menu := MainMenu("  Alice ")
	assert.Contains(t, menu.Text, "Hello, Alice!")
	require.NotNil(t, menu.Keyboard)
	assert.False(t, menu.Keyboard.Inline)

	var labels []string
	for _, row := range menu.Keyboard.Rows {
		for _, b := range row {
			labels = append(labels, b.Label)
			assert.Empty(t, b.Token)
		}
	}
	assert.Equal(t, []string{TriggerHelp, TriggerAddCategory, TriggerShowCategories}, labels)
	assert.Contains(t, MainMenu("").Text, "Hello there!")
}

func TestMarkdownRepliesEscapeUserText(t *testing.T) {
	created := CategoryCreated("to_do*", true)
	assert.True(t, created.Markdown)
	assert.Equal(t, `Category *to\_do\** created\.`, created.Text)
	assert.Equal(t, `Category *x* is ready\.`, CategoryCreated("x", false).Text)
	assert.Equal(t, `Category *v1\.2 \(beta\)\!* created\.`, CategoryCreated("v1.2 (beta)!", true).Text)

	notes := CategoryNotes(model.Category{Name: "work"}, []model.Note{{Content: "a_b"}, {Content: "c."}})
	assert.Equal(t, "*work*:\n\n1\\. a\\_b\n2\\. c\\.", notes.Text)
	assert.Equal(t, `*to\_do* has no notes yet\.`, CategoryNotes(model.Category{Name: "to_do"}, nil).Text)
}

func TestCategoryNotesFitsOneMessage(t *testing.T) {
	long := strings.Repeat("x", 3000)
	resp := CategoryNotes(model.Category{Name: "work"}, []model.Note{{Content: long}, {Content: long}})
	assert.LessOrEqual(t, utf8.RuneCountInString(resp.Text), MaxMessageLen)
	assert.Contains(t, resp.Text, strings.Repeat("x", NotePreviewLen-1)+"…")
	assert.NotContains(t, resp.Text, strings.Repeat("x", NotePreviewLen))

	// escaping doubles the text, previews still stop before the limit
	many := make([]model.Note, 50)
	for i := range many {
		many[i] = model.Note{Content: strings.Repeat(".", 1000)}
	}
	resp = CategoryNotes(model.Category{Name: "dots"}, many)
	assert.LessOrEqual(t, utf8.RuneCountInString(resp.Text), MaxMessageLen)
	assert.True(t, strings.HasPrefix(resp.Text, "*dots*:\n\n1\\. "))
	assert.Regexp(t, `…and \d+ more$`, resp.Text)
}

func TestPickers(t *testing.T) {
	picker := CategoryPicker(cats("home"))
	require.NotNil(t, picker.Keyboard)
	assert.True(t, picker.Keyboard.Inline)
	assert.Equal(t, "choose_note_category_1", picker.Keyboard.Rows[0][0].Token)

	assert.Nil(t, CategoryList(nil).Keyboard)
	assert.Equal(t, "select_category_1", CategoryList(cats("home")).Keyboard.Rows[0][0].Token)
}
