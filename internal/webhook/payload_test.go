package webhook_test

import (
	"encoding/json"
	"testing"

	"github.com/leoedu/leobot/internal/webhook"
)

func TestPayloadText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plain conversation",
			body: `{"key":{"remoteJid":"5583999990000@s.whatsapp.net","fromMe":false},"message":{"conversation":"oi Leo"}}`,
			want: "oi Leo",
		},
		{
			name: "extended text message",
			body: `{"key":{"remoteJid":"5583999990000@s.whatsapp.net","fromMe":false},"message":{"extendedTextMessage":{"text":"quando é a prova?"}}}`,
			want: "quando é a prova?",
		},
		{
			name: "conversation wins over extended",
			body: `{"key":{"remoteJid":"x@s.whatsapp.net","fromMe":false},"message":{"conversation":"a","extendedTextMessage":{"text":"b"}}}`,
			want: "a",
		},
		{
			name: "image message has no text",
			body: `{"key":{"remoteJid":"x@s.whatsapp.net","fromMe":false},"message":{},"messageType":"imageMessage"}`,
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var p webhook.Payload
			if err := json.Unmarshal([]byte(tc.body), &p); err != nil {
				t.Fatalf("failed to unmarshal payload: %v", err)
			}

			if got := p.Text(); got != tc.want {
				t.Errorf("Text() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPayloadIsEcho(t *testing.T) {
	t.Parallel()

	var p webhook.Payload
	body := `{"key":{"remoteJid":"5583999990000@s.whatsapp.net","fromMe":true},"message":{"conversation":"eco"}}`

	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}

	if !p.IsEcho() {
		t.Error("IsEcho() = false, want true for fromMe payload")
	}
}

func TestExtractPhoneNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		remoteJID string
		want      string
		wantErr   bool
	}{
		{name: "valid jid", remoteJID: "5511999999999@s.whatsapp.net", want: "5511999999999"},
		{name: "group jid", remoteJID: "123456-789@g.us", want: "123456-789"},
		{name: "empty", remoteJID: "", wantErr: true},
		{name: "no at sign", remoteJID: "5511999999999", wantErr: true},
		{name: "empty number part", remoteJID: "@s.whatsapp.net", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := webhook.ExtractPhoneNumber(tc.remoteJID)

			if tc.wantErr {
				if err == nil {
					t.Errorf("ExtractPhoneNumber(%q) error = nil, want error", tc.remoteJID)
				}

				return
			}

			if err != nil {
				t.Fatalf("ExtractPhoneNumber(%q) error = %v", tc.remoteJID, err)
			}

			if got != tc.want {
				t.Errorf("ExtractPhoneNumber(%q) = %q, want %q", tc.remoteJID, got, tc.want)
			}
		})
	}
}
