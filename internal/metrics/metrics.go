// Package metrics exposes prometheus counters for conversation flows.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Flow counts events, transitions and recovered errors of the flow dispatcher.
type Flow struct {
	Events      *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	LockWait    prometheus.Histogram
}

// NewFlow builds the collectors and registers them with reg when it is not nil.
func NewFlow(reg prometheus.Registerer) *Flow {
	f := &Flow{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notesbot",
				Subsystem: "flow",
				Name:      "events_total",
				Help:      "Inbound chat events by kind",
			},
			[]string{"kind"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notesbot",
				Subsystem: "flow",
				Name:      "transitions_total",
				Help:      "Conversation state transitions",
			},
			[]string{"from", "to"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notesbot",
				Subsystem: "flow",
				Name:      "errors_total",
				Help:      "Errors recovered by the dispatcher, by class",
			},
			[]string{"class"},
		),
		LockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "notesbot",
				Subsystem: "flow",
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for the per-user lock",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
	}
	if reg != nil {
		reg.MustRegister(f.Events, f.Transitions, f.Errors, f.LockWait)
	}
	return f
}

// Event counts one inbound event.
func (f *Flow) Event(kind string) {
	if f == nil {
		return
	}
	f.Events.WithLabelValues(kind).Inc()
}

// Transition counts a state change; unchanged states are not counted.
func (f *Flow) Transition(from, to string) {
	if f == nil || from == to {
		return
	}
	f.Transitions.WithLabelValues(from, to).Inc()
}

// Error counts one recovered error.
func (f *Flow) Error(class string) {
	if f == nil {
		return
	}
	f.Errors.WithLabelValues(class).Inc()
}

// ObserveLockWait records how long acquiring a user lock took.
func (f *Flow) ObserveLockWait(d time.Duration) {
	if f == nil {
		return
	}
	f.LockWait.Observe(d.Seconds())
}
