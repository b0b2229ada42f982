package monitor

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// Channel sends replies back through the transport that delivered a message.
//
// Implement Channel for each chat transport (WeChat client, HTTP relay,
// console). The Router never calls Channel itself; matchers do, through
// Matcher.Send and friends.
type Channel interface {
	SendText(ctx context.Context, target, text string, opts ...SendOption) error
}

// ChannelFunc adapts a function to the Channel interface.
type ChannelFunc func(ctx context.Context, target, text string, opts ...SendOption) error

// SendText implements Channel.
func (f ChannelFunc) SendText(ctx context.Context, target, text string, opts ...SendOption) error {
	return f(ctx, target, text, opts...)
}

// SendOptions collects transport-specific send parameters.
type SendOptions struct {
	// Target overrides the reply target resolved from the inbound message.
	Target string

	// Mentions lists user identifiers to mention in a group reply.
	Mentions []string

	// Extra carries options only a specific transport understands.
	Extra map[string]any
}

// SendOption configures a single send.
type SendOption func(*SendOptions)

// To sends to an explicit target instead of the inbound conversation.
func To(target string) SendOption {
	return func(o *SendOptions) {
		o.Target = target
	}
}

// Mention adds users to mention in the reply.
func Mention(users ...string) SendOption {
	return func(o *SendOptions) {
		o.Mentions = append(o.Mentions, users...)
	}
}

// WithExtra sets a transport-specific option.
func WithExtra(key string, value any) SendOption {
	return func(o *SendOptions) {
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[key] = value
	}
}

// ApplySendOptions folds opts into a SendOptions value. Channel
// implementations use it to read the options they were called with.
func ApplySendOptions(opts ...SendOption) SendOptions {
	var o SendOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Source parses raw inbound bytes into a Message.
//
// Sources let a transport hand the Router whatever it received (a webhook
// body, a websocket frame) without building Messages itself:
//
//	src := monitor.JSONSource("wechat", monitor.FieldMap{Text: "content"}, ch)
//	err := r.Process(ctx, src, body)
type Source interface {
	// Name returns the source identifier for logging.
	Name() string

	// Parse converts raw bytes into a Message or reports why it could not.
	Parse(raw []byte) (*Message, error)
}

// SourceFunc creates a Source from a name and parse function.
func SourceFunc(name string, parse func([]byte) (*Message, error)) Source {
	return &sourceFunc{name: name, parse: parse}
}

type sourceFunc struct {
	name  string
	parse func([]byte) (*Message, error)
}

func (s *sourceFunc) Name() string                       { return s.name }
func (s *sourceFunc) Parse(raw []byte) (*Message, error) { return s.parse(raw) }

// FieldMap names the gjson paths JSONSource reads each Message field from.
// Empty paths fall back to the defaults documented on each field.
type FieldMap struct {
	Type   string // default "type"
	Kind   string // default "chat_type"
	Group  string // default "group"
	Sender string // default "sender"
	Text   string // default "text"
}

func (f FieldMap) withDefaults() FieldMap {
	if f.Type == "" {
		f.Type = "type"
	}
	if f.Kind == "" {
		f.Kind = "chat_type"
	}
	if f.Group == "" {
		f.Group = "group"
	}
	if f.Sender == "" {
		f.Sender = "sender"
	}
	if f.Text == "" {
		f.Text = "text"
	}
	return f
}

// JSONSource returns a Source that reads Message fields from a JSON object
// using gjson paths. Parsed messages reply through ch.
//
// When the kind field is absent the kind is inferred: a non-empty group
// means ChatGroup, otherwise ChatDirect.
func JSONSource(name string, fields FieldMap, ch Channel) Source {
	fields = fields.withDefaults()
	return SourceFunc(name, func(raw []byte) (*Message, error) {
		if !gjson.ValidBytes(raw) {
			return nil, ErrInvalidJSON
		}
		res := gjson.GetManyBytes(raw, fields.Type, fields.Kind, fields.Group, fields.Sender, fields.Text)
		if !res[4].Exists() {
			return nil, fmt.Errorf("missing %q field", fields.Text)
		}
		msg := &Message{
			Type:    res[0].String(),
			Raw:     append([]byte(nil), raw...),
			Kind:    ChatKind(res[1].String()),
			Group:   res[2].String(),
			Sender:  res[3].String(),
			Text:    res[4].String(),
			Channel: ch,
		}
		if msg.Kind == ChatAny {
			if msg.Group != "" {
				msg.Kind = ChatGroup
			} else {
				msg.Kind = ChatDirect
			}
		}
		return msg, nil
	})
}
