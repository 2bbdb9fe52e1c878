package webhook

import (
	"fmt"
	"strings"
)

// messageKey identifies a message within the Evolution API payload.
type messageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

type extendedTextMessage struct {
	Text string `json:"text"`
}

// messageContent mirrors the Evolution API message body. Only text
// carriers are mapped; media messages are ignored upstream.
type messageContent struct {
	Conversation        string               `json:"conversation"`
	ExtendedTextMessage *extendedTextMessage `json:"extendedTextMessage"`
}

// Payload is the inbound Evolution API webhook event.
type Payload struct {
	Key         messageKey     `json:"key"`
	Message     messageContent `json:"message"`
	MessageType string         `json:"messageType"`
	PushName    string         `json:"pushName"`
}

// IsEcho reports whether the event is the bot's own outbound message
// looping back. Echoes are ignored entirely.
func (p *Payload) IsEcho() bool {
	return p.Key.FromMe
}

// Text returns the message text, trying the plain conversation field
// first and the extended text message second. Empty means the event
// carries no processable text.
func (p *Payload) Text() string {
	if p.Message.Conversation != "" {
		return p.Message.Conversation
	}

	if p.Message.ExtendedTextMessage != nil {
		return p.Message.ExtendedTextMessage.Text
	}

	return ""
}

// ExtractPhoneNumber pulls the sender's number out of a remoteJid of
// the form "5511999999999@s.whatsapp.net".
func ExtractPhoneNumber(remoteJID string) (string, error) {
	if remoteJID == "" {
		return "", fmt.Errorf("remoteJid is empty")
	}

	number, _, found := strings.Cut(remoteJID, "@")
	if !found || number == "" {
		return "", fmt.Errorf("invalid remoteJid format: %q", remoteJID)
	}

	return number, nil
}
