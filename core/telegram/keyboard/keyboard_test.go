package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineKeepsRawData(t *testing.T) {
	markup := Inline(
		[]Button{{Text: "Books", Data: "select_category_1"}, {Text: "Work", Data: "select_category_2"}},
		nil,
		[]Button{{Text: "Ideas", Data: "select_category_3"}},
	)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "select_category_2", markup.InlineKeyboard[0][1].Data)
	assert.Empty(t, markup.InlineKeyboard[0][1].Unique)
	assert.Equal(t, "Ideas", markup.InlineKeyboard[1][0].Text)
}

func TestReply(t *testing.T) {
	markup := Reply([]string{"Help", "Add a new category"}, []string{"Show categories"})
	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 2)
	assert.Equal(t, "Add a new category", markup.ReplyKeyboard[0][1].Text)
	assert.Equal(t, "Show categories", markup.ReplyKeyboard[1][0].Text)
}

func TestChunk(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2, 3}, {4}}, Chunk([]int{1, 2, 3, 4}, 3))
	assert.Equal(t, [][]int{{1}, {2}}, Chunk([]int{1, 2}, 0))
	assert.Empty(t, Chunk([]int(nil), 3))
}
