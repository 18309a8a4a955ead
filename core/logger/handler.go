package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// handler writes one flat line per record, JSON or key=value, with keys in a fixed order.
type handler struct {
	level  slog.Leveler
	out    *asyncWriter
	format logFormat
	order  []string
	attrs  []slog.Attr
	groups []string
}

func newHandler(level slog.Leveler, out *asyncWriter, format logFormat, order []string) *handler {
	if level == nil {
		level = slog.LevelInfo
	}
	if order == nil {
		order = append([]string(nil), defaultKeyOrder...)
	}
	return &handler{level: level, out: out, format: format, order: order}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if h.out == nil {
		return errors.New("logger: writer not initialized")
	}

	rec := make(record, 16)
	ts := r.Time.UTC()
	rec["ts"] = ts.Truncate(time.Millisecond).Format(timeLayout)
	rec["level"] = canonicalLevel(r.Level.String())
	if h.format == formatJSON {
		rec["ts_unix_nano"] = ts.UnixNano()
	}

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		rec.add(prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.add(prefix, a)
		return true
	})
	rec.fromContext(ctx)
	rec.finish(r.Message, h.format == formatJSON)

	var line []byte
	if h.format == formatJSON {
		var err error
		if line, err = rec.json(h.order); err != nil {
			return err
		}
	} else {
		line = rec.kv(h.order)
	}
	return h.out.Write(append(line, '\n'))
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// record is the flattened set of fields of one log line.
type record map[string]any

func (rec record) add(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			rec.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := flatValue(key, v); ok {
		rec[k] = val
	}
}

// fromContext copies correlation fields unless the record already has them.
func (rec record) fromContext(ctx context.Context) {
	m := metaFrom(ctx)
	rec.setDefault("rid", m.rid, m.rid != "")
	rec.setDefault("user_id", m.userID, m.userID != 0)
	rec.setDefault("update_id", m.updateID, m.updateID != 0)
	rec.setDefault("chat_id", m.chatID, m.chatID != 0)
	rec.setDefault("handler", m.handler, m.handler != "")
}

func (rec record) setDefault(key string, val any, present bool) {
	if !present {
		return
	}
	if _, ok := rec[key]; !ok {
		rec[key] = val
	}
}

func (rec record) finish(msg string, keepFullRID bool) {
	if rid, _ := rec["rid"].(string); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if keepFullRID {
				rec.setDefault("rid_full", rid, true)
			}
			rec["rid"] = compact
		}
	}
	if ev, _ := rec["event"].(string); ev == "" {
		if msg == "" {
			msg = "unknown"
		}
		rec["event"] = msg
	}
	if c, _ := rec["component"].(string); c == "" {
		rec["component"] = "app"
	}
	if s, ok := rec["status"].(string); ok && s != "" {
		rec["status"], _ = canonicalEnum(statusValues, s)
	}
	if o, ok := rec["outcome"].(string); ok && o != "" {
		if v, known := canonicalEnum(outcomeValues, o); known {
			rec["outcome"] = v
		} else {
			delete(rec, "outcome")
		}
	}
	for k, v := range rec {
		switch x := v.(type) {
		case nil:
			delete(rec, k)
		case string:
			if x == "" {
				delete(rec, k)
			}
		}
	}
}

func (rec record) keys(order []string) []string {
	keys := make([]string, 0, len(rec))
	seen := make(map[string]bool, len(rec))
	for _, k := range order {
		if _, ok := rec[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(rec)-len(keys))
	for k := range rec {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (rec record) json(order []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range rec.keys(order) {
		data, err := json.Marshal(rec[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (rec record) kv(order []string) []byte {
	var b strings.Builder
	for i, k := range rec.keys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(rec[k]))
	}
	return []byte(b.String())
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		s = fmt.Sprint(v)
	}
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

// flatValue converts v into a JSON friendly value. Durations become whole
// milliseconds under a key ending in "_ms".
func flatValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}

	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}
