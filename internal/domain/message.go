package domain

import "time"

// MessageKind classifies what the transport delivered.
type MessageKind string

const (
	KindText    MessageKind = "text"
	KindVoice   MessageKind = "voice"
	KindCommand MessageKind = "command"
)

type InboundMessage struct {
	Channel     string
	ChatID      string
	SenderID    string
	Kind        MessageKind
	Content     string // text body; empty for voice until transcribed
	Command     string // command name without "/", set when Kind == KindCommand
	VoiceFileID string // transport-specific handle for the voice attachment
	Timestamp   time.Time
}

// OutboundAction is a transient indicator sent instead of text.
type OutboundAction string

const ActionTyping OutboundAction = "typing"

type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	Action  OutboundAction // optional: when set, Content is ignored
}

// IsAction reports whether the message is a chat action rather than text.
func (m OutboundMessage) IsAction() bool {
	return m.Action != ""
}
