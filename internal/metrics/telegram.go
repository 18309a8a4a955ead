package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telegram counts handled updates and outbound sends.
type Telegram struct {
	Updates *prometheus.CounterVec
	Latency *prometheus.HistogramVec
	Sends   *prometheus.CounterVec
}

// NewTelegram builds the collectors and registers them with reg when it is not nil.
func NewTelegram(reg prometheus.Registerer) *Telegram {
	t := &Telegram{
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notesbot",
				Subsystem: "telegram",
				Name:      "updates_total",
				Help:      "Handled updates by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notesbot",
				Subsystem: "telegram",
				Name:      "handler_seconds",
				Help:      "Update handling latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		Sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notesbot",
				Subsystem: "telegram",
				Name:      "sends_total",
				Help:      "Outbound Bot API calls by action and outcome",
			},
			[]string{"action", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(t.Updates, t.Latency, t.Sends)
	}
	return t
}

// Observe records one handled update.
func (t *Telegram) Observe(kind string, took time.Duration, err error) {
	if t == nil {
		return
	}
	t.Updates.WithLabelValues(kind, outcome(err)).Inc()
	t.Latency.WithLabelValues(kind).Observe(took.Seconds())
}

// Sent records one finished outbound call.
func (t *Telegram) Sent(action string, err error) {
	if t == nil {
		return
	}
	t.Sends.WithLabelValues(action, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}
