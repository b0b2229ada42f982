package monitor

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// ErrNoChannel is returned by Matcher.Send when the message has no Channel.
var ErrNoChannel = errors.New("monitor: message has no reply channel")

// Status is the lifecycle state of a matcher run.
type Status int

// Run states. Ready and Running are transient; the others are terminal.
const (
	StatusReady Status = iota
	StatusRunning
	StatusFinished
	StatusPaused
	StatusRejected
	StatusErrored
	StatusBlocked
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusPaused:
		return "paused"
	case StatusRejected:
		return "rejected"
	case StatusErrored:
		return "errored"
	case StatusBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result describes how a matcher run ended.
type Result struct {
	// Status is the terminal state.
	Status Status

	// Err is the handler error for StatusErrored.
	Err error

	// Block reports whether lower priority tiers must be skipped.
	Block bool

	// Continuation is the definition registered by a pause or reject.
	Continuation *Definition
}

// Matcher is one run of a Definition against one message. Handlers use it
// to reply and to control the rest of the chain.
type Matcher struct {
	def      *Definition
	registry *Registry
	log      zerolog.Logger

	msg      *Message
	state    *State
	handlers []Handler
	block    bool
	status   Status
}

func newMatcher(def *Definition, registry *Registry, log zerolog.Logger) *Matcher {
	return &Matcher{
		def:      def,
		registry: registry,
		log:      log.With().Str("matcher", def.String()).Logger(),
		state:    NewState(def.DefaultStateSnapshot()),
		handlers: def.Handlers(),
		block:    def.Blocks(),
		status:   StatusReady,
	}
}

// Definition returns the definition this run was created from.
func (m *Matcher) Definition() *Definition { return m.def }

// Message returns the message being handled.
func (m *Matcher) Message() *Message { return m.msg }

// State returns the run's state.
func (m *Matcher) State() *State { return m.state }

// Status returns the current lifecycle state.
func (m *Matcher) Status() Status { return m.status }

// Remaining returns the handlers not yet executed.
func (m *Matcher) Remaining() []Handler { return slices.Clone(m.handlers) }

func (m *Matcher) String() string { return m.def.String() }

// Send replies to the current conversation: the group if the message came
// from one, otherwise the sender. Use To to target someone else. Sending
// empty text is a no-op.
func (m *Matcher) Send(ctx context.Context, text string, opts ...SendOption) error {
	if text == "" {
		return nil
	}
	if m.msg == nil || m.msg.Channel == nil {
		return ErrNoChannel
	}
	target := ApplySendOptions(opts...).Target
	if target == "" {
		target = m.msg.ReplyTarget()
	}
	if err := m.msg.Channel.SendText(ctx, target, text, opts...); err != nil {
		return fmt.Errorf("send to %s: %w", target, err)
	}
	return nil
}

// SendReply is Send with the sender mentioned when the message came from a
// group.
func (m *Matcher) SendReply(ctx context.Context, text string, opts ...SendOption) error {
	if m.msg != nil && m.msg.Kind == ChatGroup && m.msg.Sender != "" {
		opts = append(opts, Mention(m.msg.Sender))
	}
	return m.Send(ctx, text, opts...)
}

// Finish sends text (if any) and returns ErrFinished. Handlers return the
// result to end the matcher:
//
//	return m.Finish(ctx, "pong!")
func (m *Matcher) Finish(ctx context.Context, text string, opts ...SendOption) error {
	return m.sendThen(ctx, text, opts, ErrFinished)
}

// Pause sends prompt (if any) and returns ErrPaused. The next message from
// the same sender resumes the chain at the following handler.
func (m *Matcher) Pause(ctx context.Context, prompt string, opts ...SendOption) error {
	return m.sendThen(ctx, prompt, opts, ErrPaused)
}

// Reject sends prompt (if any) and returns ErrRejected. The next message
// from the same sender re-runs the current handler.
func (m *Matcher) Reject(ctx context.Context, prompt string, opts ...SendOption) error {
	return m.sendThen(ctx, prompt, opts, ErrRejected)
}

func (m *Matcher) sendThen(ctx context.Context, text string, opts []SendOption, signal error) error {
	if err := m.Send(ctx, text, opts...); err != nil {
		return err
	}
	return signal
}

// StopPropagation marks the run as blocking without ending the chain.
// Return ErrStopPropagation instead to also skip the remaining handlers.
func (m *Matcher) StopPropagation() {
	m.block = true
}

// run executes the handler chain against msg. dispatch is the dispatch
// state; its entries override the definition's default state.
func (m *Matcher) run(ctx context.Context, msg *Message, dispatch *State) Result {
	m.msg = msg
	m.status = StatusRunning

	factory, _, _ := m.def.hooks()
	if factory != nil {
		seed, err := runFactory(ctx, factory, msg)
		if err != nil {
			m.log.Error().Err(err).Msg("State factory failed")
			return m.end(StatusErrored, err, nil)
		}
		m.state = NewState(seed)
	}
	m.state.Merge(dispatch.Snapshot())

	for len(m.handlers) > 0 {
		h := m.handlers[0]
		m.handlers = m.handlers[1:]

		err := m.invoke(ctx, h)
		if err == nil {
			continue
		}

		var mismatch *TypeMismatchError
		if errors.As(err, &mismatch) {
			m.log.Debug().Err(err).Str("handler", h.Name).Msg("Handler does not accept message, skipped")
			continue
		}

		var sig *Signal
		if !errors.As(err, &sig) {
			m.log.Error().Err(err).Str("handler", h.Name).Msg("Running matcher failed")
			return m.end(StatusErrored, err, nil)
		}

		switch sig.Kind {
		case SignalFinish:
			return m.end(StatusFinished, nil, nil)
		case SignalPause:
			return m.end(StatusPaused, nil, m.continuation(ctx, m.handlers))
		case SignalReject:
			return m.end(StatusRejected, nil, m.continuation(ctx, append([]Handler{h}, m.handlers...)))
		case SignalStopPropagation:
			m.block = true
			return m.end(StatusBlocked, nil, nil)
		}
	}
	return m.end(StatusFinished, nil, nil)
}

func (m *Matcher) invoke(ctx context.Context, h Handler) error {
	if err := h.accepts(m.msg); err != nil {
		return err
	}
	err := safely(func() error {
		return h.Fn(ctx, m, m.msg, m.state)
	})
	var mismatch *TypeMismatchError
	if errors.As(err, &mismatch) && mismatch.Handler == "" {
		mismatch.Handler = h.Name
	}
	return err
}

func (m *Matcher) end(status Status, err error, cont *Definition) Result {
	if status == StatusFinished && m.block {
		status = StatusBlocked
	}
	m.status = status
	m.log.Debug().Str("status", status.String()).Msg("Matcher running complete")
	return Result{
		Status:       status,
		Err:          err,
		Block:        m.block && status != StatusErrored,
		Continuation: cont,
	}
}

// continuation registers a temp, top priority, blocking definition that
// resumes handlers on the next message of the same session.
func (m *Matcher) continuation(ctx context.Context, handlers []Handler) *Definition {
	_, parser, updater := m.def.hooks()

	typ := TypeMessage
	if updater != nil {
		t, err := runTypeUpdater(ctx, updater, m.msg, m.state, m.def.Type())
		if err != nil {
			m.log.Warn().Err(err).Msg("Type updater failed, continuing with generic message type")
		} else {
			typ = t
		}
	}

	cont := NewDefinition(typ, SameSession(m.msg),
		Temp(true),
		Priority(0),
		Block(true),
		Module(m.def.Module()),
		DefaultState(m.state.Snapshot()),
		WithArgsParser(parser),
		WithTypeUpdater(updater),
	)
	cont.handlers = slices.Clone(handlers)
	if m.registry != nil {
		m.registry.Register(cont)
	}
	m.log.Debug().Str("continuation", cont.ID().String()).Int("handlers", len(handlers)).Msg("Continuation registered")
	return cont
}

func runFactory(ctx context.Context, f StateFactory, msg *Message) (seed map[string]any, err error) {
	err = safely(func() error {
		seed, err = f(ctx, msg)
		return err
	})
	return seed, err
}

func runTypeUpdater(ctx context.Context, u TypeUpdater, msg *Message, state *State, current string) (typ string, err error) {
	err = safely(func() error {
		typ, err = u(ctx, msg, state, current)
		return err
	})
	return typ, err
}
