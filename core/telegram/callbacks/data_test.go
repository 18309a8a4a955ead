package callbacks

import (
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestSplit(t *testing.T) {
	prefix := func(data string) string {
		i := strings.LastIndexByte(data, '_')
		if i < 0 {
			return ""
		}
		return data[:i]
	}

	cases := []struct {
		name         string
		cb           *tele.Callback
		keyOf        KeyFunc
		key, payload string
	}{
		{"nil", nil, nil, "", ""},
		{"unique", &tele.Callback{Unique: "lang", Data: "en"}, nil, "lang", "en"},
		{"telebot encoding", &tele.Callback{Data: "\flang|ru"}, nil, "lang", "ru"},
		{"telebot without payload", &tele.Callback{Data: "\fmenu"}, nil, "menu", ""},
		{"raw with key func", &tele.Callback{Data: "select_category_7"}, prefix, "select_category", "select_category_7"},
		{"raw without key func", &tele.Callback{Data: "select_category_7"}, nil, "", "select_category_7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := Split(tc.cb, tc.keyOf)
			if key != tc.key || payload != tc.payload {
				t.Fatalf("Split = (%q, %q), want (%q, %q)", key, payload, tc.key, tc.payload)
			}
		})
	}
}
