// Package callback encodes and decodes the tokens carried by inline buttons.
//
// A token has the form "<action>_<id>" where id is a decimal category id.
// Tokens come back from clients and may be stale or forged, so Decode never
// trusts its input.
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action names what a button does with the referenced entity.
type Action string

const (
	// SelectCategory opens a category for browsing.
	SelectCategory Action = "select_category"
	// ChooseNoteCategory files the pending note under a category.
	ChooseNoteCategory Action = "choose_note_category"
)

// MaxTokenLen is the Telegram limit for callback data in bytes.
const MaxTokenLen = 64

// ErrMalformed is returned for tokens that do not decode to a known action and id.
var ErrMalformed = errors.New("callback: malformed token")

// actions is ordered longest first so prefixes never shadow each other.
var actions = []Action{ChooseNoteCategory, SelectCategory}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range actions {
		if a == known {
			return true
		}
	}
	return false
}

// Encode builds the token for action and id.
func Encode(action Action, id int64) (string, error) {
	if !action.Valid() {
		return "", fmt.Errorf("callback: unknown action %q", action)
	}
	if id < 0 {
		return "", fmt.Errorf("callback: negative id %d", id)
	}
	return string(action) + "_" + strconv.FormatInt(id, 10), nil
}

// MustEncode is Encode for statically known actions; it panics on invalid input.
func MustEncode(action Action, id int64) string {
	token, err := Encode(action, id)
	if err != nil {
		panic(err)
	}
	return token
}

// Decode parses token into its action and id.
func Decode(token string) (Action, int64, error) {
	if token == "" || len(token) > MaxTokenLen {
		return "", 0, ErrMalformed
	}
	for _, action := range actions {
		prefix := string(action) + "_"
		if !strings.HasPrefix(token, prefix) {
			continue
		}
		id, ok := parseID(token[len(prefix):])
		if !ok {
			return "", 0, ErrMalformed
		}
		return action, id, nil
	}
	return "", 0, ErrMalformed
}

// parseID accepts only plain decimal digits: no sign, no spaces.
func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
