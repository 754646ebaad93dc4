package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name        string
		cb          *tele.Callback
		wantKey     string
		wantPayload string
	}{
		{"nil", nil, "", ""},
		{"raw unique", &tele.Callback{Data: "\farea_500"}, "area_500", ""},
		{"raw with payload", &tele.Callback{Data: "\fterm_12|x"}, "term_12", "x"},
		{"resolved unique", &tele.Callback{Unique: "cancel", Data: ""}, "cancel", ""},
		{"legacy plain data", &tele.Callback{Data: "main_menu"}, "main_menu", ""},
		{"payload keeps separators", &tele.Callback{Data: "\fk|a|b"}, "k", "a|b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tt.cb)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantPayload, payload)
		})
	}
}
