package logger

import "strings"

// Level names written to the "level" field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var levelNames = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// Known values of enumerated fields. Unknown statuses pass through as is,
// unknown outcomes are dropped.
var (
	statusValues  = enum("ok", "fail", "skip", "retry", "rate_limited", "cancelled")
	outcomeValues = enum("ok", "fail", "ignored", "cancelled", "rate_limited")
)

func enum(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func canonicalLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

func canonicalEnum(values map[string]struct{}, v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	_, ok := values[v]
	return v, ok
}

// defaultKeyOrder puts identity and correlation first, flow fields next and errors last.
// Keys not listed follow in alphabetical order.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"kind",
	"step",
	"from",
	"to",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"category_id",
	"note_id",
	"created",
	"count",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"backend",
	"db",
	"host",
	"port",
	"action",
	"endpoint",
	"attempt",
	"attempts",
	"elapsed_ms",
	"err",
	"err_code",
	"error_kind",
	"cause",
}
