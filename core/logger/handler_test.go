package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture returns a logger writing to a buffer and a function that flushes it and returns the single line.
func capture(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newHandler(slog.LevelDebug, w, format, nil))
	return log, func() string {
		require.NoError(t, w.Flush())
		require.NoError(t, w.Close())
		return strings.TrimSpace(buf.String())
	}
}

func TestHandlerKVOrder(t *testing.T) {
	log, line := capture(t, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "flow"), slog.LevelInfo, "flow.transition",
		slog.String("to", "idle"),
		slog.String("status", "OK"),
		slog.String("from", "awaiting_category_name"),
	)

	tokens := strings.Split(line(), " ")
	want := []string{
		"ts=", "level=INFO", "component=flow", "event=flow.transition", "status=ok",
		"rid=rid-123", "update_id=42", "user_id=7", "chat_id=9",
		"from=awaiting_category_name", "to=idle",
	}
	require.GreaterOrEqual(t, len(tokens), len(want))
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestHandlerJSON(t *testing.T) {
	log, line := capture(t, formatJSON)
	ctx := WithHandler(WithRID(context.Background(), "11:22:33"), "callback.choose_note_category")

	LogEvent(ctx, log.With("component", "storage"), slog.LevelError, "note.create",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.Duration("duration", 1500*time.Millisecond),
		slog.Duration("lock_wait", 20*time.Millisecond),
		slog.Group("pool", slog.Int("open", 3)),
	)

	raw := line()
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "ERROR", got["level"])
	assert.Equal(t, "storage", got["component"])
	assert.Equal(t, "note.create", got["event"])
	assert.Equal(t, CompactRID("11:22:33"), got["rid"])
	assert.Equal(t, "11:22:33", got["rid_full"])
	assert.Equal(t, "callback.choose_note_category", got["handler"])
	assert.EqualValues(t, 1500, got["duration_ms"])
	assert.EqualValues(t, 20, got["lock_wait_ms"])
	assert.EqualValues(t, 3, got["pool.open"])
	assert.Contains(t, got, "ts_unix_nano")

	pos := -1
	for _, key := range []string{`"ts"`, `"level"`, `"component"`, `"event"`, `"status"`, `"rid"`, `"err"`} {
		idx := strings.Index(raw, key+":")
		require.Greater(t, idx, pos, "key %s out of order in %s", key, raw)
		pos = idx
	}
}

func TestHandlerCompactRIDKV(t *testing.T) {
	log, line := capture(t, formatKV)
	LogEvent(WithRID(context.Background(), "123:456:789"), log, slog.LevelInfo, "rid.test")

	out := line()
	assert.Contains(t, out, "rid="+CompactRID("123:456:789"))
	assert.NotContains(t, out, "rid_full=")
	assert.Contains(t, out, "component=app")
}

func TestHandlerEnumsAndEmptyFields(t *testing.T) {
	log, line := capture(t, formatKV)
	LogEvent(context.Background(), log, slog.LevelWarn, "",
		slog.String("outcome", "exploded"),
		slog.String("status", "Weird"),
		slog.String("payload", "  "),
		slog.String("text", "two words"),
	)

	out := line()
	assert.Contains(t, out, "event=unknown")
	assert.Contains(t, out, "status=weird")
	assert.Contains(t, out, `text="two words"`)
	assert.NotContains(t, out, "outcome=")
	assert.NotContains(t, out, "payload=")
}

func TestHandlerLevelFilter(t *testing.T) {
	h := newHandler(slog.LevelWarn, nil, formatKV, nil)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestContextMetaAccumulates(t *testing.T) {
	ctx := WithRID(context.Background(), "r")
	ctx = WithUpdateMeta(ctx, 1, 2, 3)
	ctx = WithHandler(ctx, "cmd.start")

	assert.Equal(t, "r", RIDFrom(ctx))
	assert.Equal(t, 1, UpdateIDFrom(ctx))
	assert.Equal(t, int64(2), UserIDFrom(ctx))
	assert.Equal(t, int64(3), ChatIDFrom(ctx))
	assert.Equal(t, "cmd.start", HandlerFrom(ctx))
	assert.Equal(t, "", RIDFrom(context.Background()))
}
