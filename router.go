package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Router dispatches inbound messages to the matchers in its Registry.
//
// Usage:
//  1. Create a router with New
//  2. Register definitions with Register or the On* helpers
//  3. Feed messages with Handle (or Process for raw bytes)
//
// Router is safe for concurrent use. Definitions may be registered while
// messages are being handled; a dispatch only sees definitions that were
// registered before it started.
type Router struct {
	cfg      Config
	registry *Registry
	trie     *Trie
	log      zerolog.Logger
	hooks    hooks
}

// New creates a Router with the given options.
//
// Example:
//
//	r := monitor.New(
//	    monitor.WithConfig(cfg),
//	    monitor.WithLogger(log),
//	    monitor.WithOnFailure(func(ctx context.Context, def *monitor.Definition, err error, d time.Duration) {
//	        alert(def, err)
//	    }),
//	)
func New(opts ...Option) *Router {
	r := &Router{
		cfg: DefaultConfig(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	r.trie = NewTrie(r.log)
	return r
}

// Config returns the router's rule configuration.
func (r *Router) Config() Config { return r.cfg }

// Registry returns the registry the router dispatches over.
func (r *Router) Registry() *Registry { return r.registry }

// Trie returns the command index.
func (r *Router) Trie() *Trie { return r.trie }

// Register adds d to the registry and returns it.
func (r *Router) Register(d *Definition) *Definition {
	r.registry.Register(d)
	return d
}

// Remove deletes d from the registry. Removing an absent definition is a
// no-op that returns false.
func (r *Router) Remove(d *Definition) bool {
	return r.registry.Remove(d)
}

// Process parses raw with src and handles the resulting message.
func (r *Router) Process(ctx context.Context, src Source, raw []byte) error {
	msg, err := src.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse failed for source %s: %w", src.Name(), err)
	}
	return r.Handle(ctx, msg)
}

// Handle dispatches one message.
//
// The processing flow:
//  1. Run event pre-processors concurrently; an ignore drops the message
//  2. Resolve the command trie into the dispatch state
//  3. For each priority in ascending order, check every rule of the tier
//     concurrently and run the matchers that matched; stop after a tier in
//     which a blocking matcher ran
//  4. Run event post-processors concurrently
//
// Matcher, rule and post-processor failures are logged and isolated. Handle
// only returns an error when a pre-processor fails.
func (r *Router) Handle(ctx context.Context, msg *Message) error {
	start := time.Now()
	state := NewState(nil)

	if err := runStage(ctx, r.hooks.eventPre, func(ctx context.Context, fn EventPreprocessor) error {
		return fn(ctx, msg, state)
	}); err != nil {
		if errors.Is(err, ErrIgnored) {
			r.log.Debug().Err(err).Str("message", msg.String()).Msg("Event ignored")
			return nil
		}
		r.log.Error().Err(err).Msg("Error when running EventPreprocessors, event ignored")
		return fmt.Errorf("event preprocessor: %w", err)
	}

	r.trie.Resolve(msg, state)

	gen := r.registry.Generation()
	ran := 0
	blocked := false
	for _, priority := range r.registry.Priorities() {
		n, block := r.runTier(ctx, priority, gen, msg, state)
		ran += n
		if block {
			blocked = true
			r.log.Debug().Int("priority", priority).Msg("Stop event propagation")
			break
		}
	}

	if err := runStage(ctx, r.hooks.eventPost, func(ctx context.Context, fn EventPostprocessor) error {
		return fn(ctx, msg, state)
	}); err != nil {
		r.log.Error().Err(err).Msg("Error when running EventPostprocessors")
	}

	duration := time.Since(start)
	for _, fn := range r.hooks.onDispatch {
		fn(ctx, msg, ran, blocked, duration)
	}
	return nil
}

// runTier checks and runs every definition of one priority concurrently.
// It returns how many matchers ran and whether any of them blocks.
func (r *Router) runTier(ctx context.Context, priority int, gen uint64, msg *Message, state *State) (int, bool) {
	defs := r.registry.snapshotAt(priority, gen)

	var ran atomic.Int64
	var blocked atomic.Bool
	var g errgroup.Group
	for _, def := range defs {
		g.Go(func() error {
			res, ok := r.checkAndRun(ctx, def, msg, state)
			if ok {
				ran.Add(1)
				if res.Block {
					blocked.Store(true)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(ran.Load()), blocked.Load()
}

func (r *Router) checkAndRun(ctx context.Context, def *Definition, msg *Message, state *State) (Result, bool) {
	if !def.accepts(msg) {
		return Result{}, false
	}

	ok, err := def.Rule().Check(ctx, msg, state)
	if err != nil {
		r.log.Error().Err(err).Str("matcher", def.String()).Msg("Rule check failed")
		for _, fn := range r.hooks.onRuleError {
			fn(ctx, def, err)
		}
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}

	// Remove before running so a concurrent dispatch cannot trigger a temp
	// matcher twice. Losing the race means someone else already ran it.
	if def.Temp() && !r.registry.Remove(def) {
		r.log.Debug().Str("matcher", def.String()).Msg("Temp matcher already consumed")
		return Result{}, false
	}

	return r.runMatcher(ctx, def, msg, state)
}

func (r *Router) runMatcher(ctx context.Context, def *Definition, msg *Message, state *State) (Result, bool) {
	r.log.Info().Str("matcher", def.String()).Msg("Event will be handled")
	for _, fn := range r.hooks.onMatch {
		fn(ctx, def, msg)
	}

	m := newMatcher(def, r.registry, r.log)

	if err := runStage(ctx, r.hooks.runPre, func(ctx context.Context, fn RunPreprocessor) error {
		return fn(ctx, m, msg, state)
	}); err != nil {
		if errors.Is(err, ErrIgnored) {
			r.log.Info().Str("matcher", def.String()).Msg("Matcher running is cancelled")
		} else {
			r.log.Error().Err(err).Str("matcher", def.String()).Msg("Error when running RunPreprocessors, running cancelled")
		}
		return Result{}, false
	}

	start := time.Now()
	res := m.run(ctx, msg, state)
	duration := time.Since(start)

	if res.Status == StatusErrored {
		for _, fn := range r.hooks.onFailure {
			fn(ctx, def, res.Err, duration)
		}
	} else {
		for _, fn := range r.hooks.onSuccess {
			fn(ctx, def, res, duration)
		}
	}

	if err := runStage(ctx, r.hooks.runPost, func(ctx context.Context, fn RunPostprocessor) error {
		return fn(ctx, m, res.Err, msg, state)
	}); err != nil {
		r.log.Error().Err(err).Str("matcher", def.String()).Msg("Error when running RunPostprocessors")
	}

	return res, true
}

// runStage runs every processor concurrently. The first failure cancels the
// context handed to the others and is returned.
func runStage[F any](ctx context.Context, fns []F, call func(context.Context, F) error) error {
	if len(fns) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		g.Go(func() error {
			return safely(func() error {
				return call(gctx, fn)
			})
		})
	}
	return g.Wait()
}
