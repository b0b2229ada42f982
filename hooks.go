package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EventPreprocessor runs before any tier of a dispatch. Returning an
// IgnoredError (see Ignore) silently drops the message; any other error
// aborts the dispatch.
type EventPreprocessor func(ctx context.Context, msg *Message, state *State) error

// EventPostprocessor runs after every tier of a dispatch. Errors are logged.
type EventPostprocessor func(ctx context.Context, msg *Message, state *State) error

// RunPreprocessor runs before each matcher run. Returning an IgnoredError
// cancels that run only; any other error also cancels it and is logged.
type RunPreprocessor func(ctx context.Context, m *Matcher, msg *Message, state *State) error

// RunPostprocessor runs after each matcher run with the run's error, if any.
type RunPostprocessor func(ctx context.Context, m *Matcher, runErr error, msg *Message, state *State) error

// OnMatchFunc is called when a definition's rule matched, just before its
// matcher runs.
type OnMatchFunc func(ctx context.Context, def *Definition, msg *Message)

// OnSuccessFunc is called after a matcher run that did not error.
type OnSuccessFunc func(ctx context.Context, def *Definition, res Result, duration time.Duration)

// OnFailureFunc is called after a matcher run that errored.
type OnFailureFunc func(ctx context.Context, def *Definition, err error, duration time.Duration)

// OnRuleErrorFunc is called when a rule check fails. The definition is
// treated as not matching.
type OnRuleErrorFunc func(ctx context.Context, def *Definition, err error)

// OnDispatchFunc is called when a dispatch completes, with the number of
// matchers that ran and whether propagation was blocked.
type OnDispatchFunc func(ctx context.Context, msg *Message, ran int, blocked bool, duration time.Duration)

// hooks holds all configured hook functions.
type hooks struct {
	eventPre  []EventPreprocessor
	eventPost []EventPostprocessor
	runPre    []RunPreprocessor
	runPost   []RunPostprocessor

	onMatch     []OnMatchFunc
	onSuccess   []OnSuccessFunc
	onFailure   []OnFailureFunc
	onRuleError []OnRuleErrorFunc
	onDispatch  []OnDispatchFunc
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Router) {
		r.log = log
	}
}

// WithConfig sets the rule configuration (command markers, bot name).
func WithConfig(cfg Config) Option {
	return func(r *Router) {
		r.cfg = cfg
	}
}

// WithRegistry makes the Router dispatch over an existing registry.
func WithRegistry(reg *Registry) Option {
	return func(r *Router) {
		r.registry = reg
	}
}

// WithEventPreprocessor adds a processor run concurrently with the others
// before each dispatch.
//
// Example:
//
//	monitor.WithEventPreprocessor(func(ctx context.Context, msg *monitor.Message, st *monitor.State) error {
//	    if msg.Sender == self {
//	        return monitor.Ignore("own message")
//	    }
//	    return nil
//	})
func WithEventPreprocessor(fn EventPreprocessor) Option {
	return func(r *Router) {
		r.hooks.eventPre = append(r.hooks.eventPre, fn)
	}
}

// WithEventPostprocessor adds a processor run concurrently with the others
// after each dispatch.
func WithEventPostprocessor(fn EventPostprocessor) Option {
	return func(r *Router) {
		r.hooks.eventPost = append(r.hooks.eventPost, fn)
	}
}

// WithRunPreprocessor adds a processor run before each matcher run.
func WithRunPreprocessor(fn RunPreprocessor) Option {
	return func(r *Router) {
		r.hooks.runPre = append(r.hooks.runPre, fn)
	}
}

// WithRunPostprocessor adds a processor run after each matcher run.
func WithRunPostprocessor(fn RunPostprocessor) Option {
	return func(r *Router) {
		r.hooks.runPost = append(r.hooks.runPost, fn)
	}
}

// WithOnMatch adds a hook called when a rule matched.
// Multiple hooks are called in order.
func WithOnMatch(fn OnMatchFunc) Option {
	return func(r *Router) {
		r.hooks.onMatch = append(r.hooks.onMatch, fn)
	}
}

// WithOnSuccess adds a hook called after a matcher run that did not error.
//
// Example:
//
//	monitor.WithOnSuccess(func(ctx context.Context, def *monitor.Definition, res monitor.Result, d time.Duration) {
//	    metrics.Timing("matcher.run", d, "status:"+res.Status.String())
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(r *Router) {
		r.hooks.onSuccess = append(r.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a matcher run that errored.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(r *Router) {
		r.hooks.onFailure = append(r.hooks.onFailure, fn)
	}
}

// WithOnRuleError adds a hook called when a rule check fails.
func WithOnRuleError(fn OnRuleErrorFunc) Option {
	return func(r *Router) {
		r.hooks.onRuleError = append(r.hooks.onRuleError, fn)
	}
}

// WithOnDispatch adds a hook called when a dispatch completes.
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(r *Router) {
		r.hooks.onDispatch = append(r.hooks.onDispatch, fn)
	}
}
