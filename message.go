package monitor

import (
	"encoding/json"
	"strings"
	"unicode"
)

// ChatKind tags the conversation a message was received in.
type ChatKind string

// Chat kinds. ChatAny is used by predicates to mean "do not filter".
const (
	ChatAny    ChatKind = ""
	ChatDirect ChatKind = "person"
	ChatGroup  ChatKind = "chatroom"
	ChatOther  ChatKind = "other"
)

// TypeMessage is the generic event type. Definitions with this type (or an
// empty type) accept every inbound event.
const TypeMessage = "message"

// Message is a single inbound chat event.
//
// A Message is created once per inbound event by the transport and is only
// read during dispatch.
type Message struct {
	// Type is the event type. Empty means TypeMessage.
	Type string

	// Raw is the transport's original payload, usually JSON.
	Raw json.RawMessage

	// Kind is the conversation kind (direct, group, other).
	Kind ChatKind

	// Group identifies the group conversation, empty for direct chats.
	Group string

	// Sender identifies the user who sent the message.
	Sender string

	// Text is the plain text content.
	Text string

	// Channel is used to send replies. It may be nil for messages that
	// never need a reply (tests, replays).
	Channel Channel
}

// EventType returns the message type, defaulting to TypeMessage.
func (m *Message) EventType() string {
	if m.Type == "" {
		return TypeMessage
	}
	return m.Type
}

// ReplyTarget returns where replies to this message go: the group if the
// message belongs to one, otherwise the sender.
func (m *Message) ReplyTarget() string {
	if m.Group != "" {
		return m.Group
	}
	return m.Sender
}

// Session identifies the conversation turn owner: the sender within the
// chat kind and group.
func (m *Message) Session() string {
	if m.Group != "" {
		return string(m.Kind) + ":" + m.Group + "/" + m.Sender
	}
	return string(m.Kind) + ":" + m.Sender
}

// Payload returns a field view over the raw payload. Messages without a
// valid JSON payload get an empty view.
func (m *Message) Payload() View {
	if v, err := Inspect(m.Raw); err == nil {
		return v
	}
	return emptyView{}
}

// CommandArgs returns the text that follows the raw command matched by the
// command trie, trimmed of surrounding whitespace. When no command matched,
// the whole trimmed text is returned.
func (m *Message) CommandArgs(state *State) string {
	text := strings.TrimLeftFunc(m.Text, unicode.IsSpace)
	if state != nil {
		if p := state.Prefix(); p.Raw != "" {
			text = strings.TrimPrefix(text, p.Raw)
		}
	}
	return strings.TrimSpace(text)
}

// ArgFields splits CommandArgs on whitespace.
func (m *Message) ArgFields(state *State) []string {
	return strings.Fields(m.CommandArgs(state))
}

func (m *Message) String() string {
	return "<Message kind=" + string(m.Kind) + " group=" + m.Group + " sender=" + m.Sender + ">"
}

func kindMatches(want ChatKind, msg *Message) bool {
	return want == ChatAny || want == msg.Kind
}
