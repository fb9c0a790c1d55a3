package client

import (
	"encoding/json"
	"testing"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		arg     string
		wantRaw bool
	}{
		{`{"a":1}`, true},
		{`[1,2]`, true},
		{`42`, true},
		{`"quoted"`, true},
		{`hello world`, false},
		{`{broken`, false},
	}

	for _, tt := range tests {
		got := parsePayload(tt.arg)
		_, isRaw := got.(json.RawMessage)
		if isRaw != tt.wantRaw {
			t.Errorf("parsePayload(%q): expected raw=%t, got %T", tt.arg, tt.wantRaw, got)
		}
		if !isRaw && got != tt.arg {
			t.Errorf("parsePayload(%q): expected the string unchanged, got %v", tt.arg, got)
		}
	}
}
