package monitor

import (
	"errors"
	"fmt"
)

// SignalKind names a control-flow outcome a handler can request.
type SignalKind int

const (
	// SignalFinish ends the matcher; no continuation is created.
	SignalFinish SignalKind = iota + 1
	// SignalPause ends the current run and resumes with the next handler
	// on the next message.
	SignalPause
	// SignalReject ends the current run and re-runs the current handler on
	// the next message.
	SignalReject
	// SignalStopPropagation ends the matcher and stops lower priority tiers.
	SignalStopPropagation
)

func (k SignalKind) String() string {
	switch k {
	case SignalFinish:
		return "finish"
	case SignalPause:
		return "pause"
	case SignalReject:
		return "reject"
	case SignalStopPropagation:
		return "stop-propagation"
	default:
		return fmt.Sprintf("signal(%d)", int(k))
	}
}

// Signal is returned by a handler to short-circuit the rest of its chain.
// Signals are not failures; the runner switches on Kind.
type Signal struct {
	Kind SignalKind
}

func (s *Signal) Error() string { return "monitor: " + s.Kind.String() }

// Is matches any Signal of the same kind, so wrapped signals still compare
// equal to the sentinels below.
func (s *Signal) Is(target error) bool {
	t, ok := target.(*Signal)
	return ok && t.Kind == s.Kind
}

// Sentinel signals. Handlers usually obtain them through Matcher.Finish,
// Matcher.Pause and Matcher.Reject, which also send the prompt.
var (
	ErrFinished        error = &Signal{Kind: SignalFinish}
	ErrPaused          error = &Signal{Kind: SignalPause}
	ErrRejected        error = &Signal{Kind: SignalReject}
	ErrStopPropagation error = &Signal{Kind: SignalStopPropagation}
)

// ErrIgnored is matched (via errors.Is) by every IgnoredError.
var ErrIgnored = errors.New("monitor: ignored")

// ErrOrNotSupported is returned by Rule.Or. Rules only compose with AND.
var ErrOrNotSupported = errors.New("monitor: OR composition of rules is not supported")

// IgnoredError vetoes a dispatch (from an event pre-processor) or a single
// matcher run (from a run pre-processor). It is not an error condition.
type IgnoredError struct {
	Reason string
}

// Ignore returns an IgnoredError with the given reason.
func Ignore(reason string) error {
	return &IgnoredError{Reason: reason}
}

func (e *IgnoredError) Error() string { return "monitor: ignored: " + e.Reason }

// Is reports ErrIgnored as a match.
func (e *IgnoredError) Is(target error) bool { return target == ErrIgnored }

// TypeMismatchError means a handler does not accept the runtime message.
// The runner skips that handler and continues the chain.
type TypeMismatchError struct {
	Handler string
	Want    string
	Got     string
	Err     error
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("handler %s expects %s, got %s", e.Handler, e.Want, e.Got)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking handler, checker or
// processor.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// safely runs fn, converting a panic into a PanicError.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
