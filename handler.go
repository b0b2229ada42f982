package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// HandlerFunc is one step of a matcher's handler chain. It receives the
// running matcher (to send replies and raise signals), the in-flight message
// and the matcher's state.
//
// Returning nil continues with the next handler. Returning a Signal (see
// Matcher.Finish, Matcher.Pause, Matcher.Reject) short-circuits the chain.
// Any other error ends the run as Errored.
type HandlerFunc func(ctx context.Context, m *Matcher, msg *Message, state *State) error

// Handler is a HandlerFunc plus the descriptor the runner checks before
// invoking it.
type Handler struct {
	// Name identifies the handler in logs.
	Name string

	// Fn is the handler body.
	Fn HandlerFunc

	// Kinds restricts the chat kinds the handler accepts. Empty accepts all.
	// A message of another kind skips the handler.
	Kinds []ChatKind
}

// Handle wraps fn as a Handler.
func Handle(fn HandlerFunc) Handler {
	return Handler{Fn: fn}
}

// Named returns a copy of h with the given name.
func (h Handler) Named(name string) Handler {
	h.Name = name
	return h
}

// Only returns a copy of h that accepts only messages of the given kinds.
func (h Handler) Only(kinds ...ChatKind) Handler {
	h.Kinds = append(slices.Clone(h.Kinds), kinds...)
	return h
}

func (h Handler) accepts(msg *Message) error {
	if len(h.Kinds) == 0 || slices.Contains(h.Kinds, msg.Kind) {
		return nil
	}
	return &TypeMismatchError{
		Handler: h.Name,
		Want:    fmt.Sprint(h.Kinds),
		Got:     string(msg.Kind),
	}
}

// validatable is the interface for payload validation.
// Compatible with github.com/go-ozzo/ozzo-validation/v4.
type validatable interface {
	Validate() error
}

// Typed builds a Handler whose body receives the message's raw payload
// decoded into T. A payload that does not decode (or does not pass its
// Validate method, when T has one) skips the handler as a type mismatch.
//
//	type friendRequest struct {
//	    WxID string `json:"wxid"`
//	}
//
//	def.AppendHandler(monitor.Typed(func(ctx context.Context, m *monitor.Matcher, msg *monitor.Message, req friendRequest, st *monitor.State) error {
//	    return m.Finish(ctx, "hello "+req.WxID)
//	}))
func Typed[T any](fn func(ctx context.Context, m *Matcher, msg *Message, payload T, state *State) error) Handler {
	return TypedAt("", fn)
}

// TypedAt is Typed for the value at a gjson path of the payload, for
// transports that wrap the event body:
//
//	monitor.TypedAt("data.detail", handleFriendRequest)
//
// An empty path decodes the whole payload. A missing path is a type
// mismatch.
func TypedAt[T any](path string, fn func(ctx context.Context, m *Matcher, msg *Message, payload T, state *State) error) Handler {
	return Handler{Fn: func(ctx context.Context, m *Matcher, msg *Message, state *State) error {
		var data T
		want := fmt.Sprintf("%T", data)

		raw := []byte(msg.Raw)
		if path != "" {
			b, ok := msg.Payload().GetBytes(path)
			if !ok {
				return &TypeMismatchError{Want: want, Got: "payload without " + path}
			}
			raw = b
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return &TypeMismatchError{Want: want, Got: "raw payload", Err: err}
		}

		if v, ok := any(data).(validatable); ok {
			if err := v.Validate(); err != nil {
				return &TypeMismatchError{Want: want, Got: "invalid payload", Err: err}
			}
		} else if v, ok := any(&data).(validatable); ok {
			if err := v.Validate(); err != nil {
				return &TypeMismatchError{Want: want, Got: "invalid payload", Err: err}
			}
		}

		return fn(ctx, m, msg, data, state)
	}}
}
