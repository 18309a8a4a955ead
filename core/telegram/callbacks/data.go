// Package callbacks reads inline button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// KeyFunc derives a routing key from raw callback data.
type KeyFunc func(data string) string

// Split returns the routing key and payload of cb. Buttons built with a telebot
// Unique carry "\f<unique>|<payload>"; any other data is returned whole as the
// payload, with the key taken from keyOf when it is set.
func Split(cb *tele.Callback, keyOf KeyFunc) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	if raw, ok := strings.CutPrefix(cb.Data, "\f"); ok {
		key, payload, _ = strings.Cut(raw, "|")
		return strings.TrimSpace(key), payload
	}
	if keyOf != nil {
		key = keyOf(cb.Data)
	}
	return key, cb.Data
}
