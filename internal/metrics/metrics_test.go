package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFlowCounters(t *testing.T) {
	f := NewFlow(prometheus.NewRegistry())
	f.Event("forwarded")
	f.Event("forwarded")
	f.Transition("idle", "awaiting_note")
	f.Transition("idle", "idle")
	f.Error("storage")
	f.ObserveLockWait(time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.Events.WithLabelValues("forwarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.Transitions.WithLabelValues("idle", "awaiting_note")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.Transitions.WithLabelValues("idle", "idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.Errors.WithLabelValues("storage")))
}

func TestTelegramCounters(t *testing.T) {
	tg := NewTelegram(prometheus.NewRegistry())
	tg.Observe("message", 10*time.Millisecond, nil)
	tg.Observe("callback", time.Millisecond, errors.New("boom"))
	tg.Sent("send.text", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(tg.Updates.WithLabelValues("message", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tg.Updates.WithLabelValues("callback", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tg.Sends.WithLabelValues("send.text", "ok")))
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var f *Flow
	var tg *Telegram
	assert.NotPanics(t, func() {
		f.Event("text")
		f.Transition("a", "b")
		f.Error("lock")
		f.ObserveLockWait(time.Second)
		tg.Observe("message", time.Second, nil)
		tg.Sent("send.md", nil)
	})
}
