package middleware

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// ObserveFunc receives the update kind, the handler latency and its error.
type ObserveFunc func(kind string, took time.Duration, err error)

// Observe reports every handled update to fn.
func Observe(fn ObserveFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if fn == nil {
			return next
		}
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			fn(UpdateKind(c), time.Since(start), err)
			return err
		}
	}
}
