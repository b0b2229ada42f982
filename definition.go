package monitor

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// DefaultPriority is the priority of definitions registered without one.
const DefaultPriority = 1

// StateFactory builds a matcher's initial state from the inbound message.
// When set it replaces the definition's default state.
type StateFactory func(ctx context.Context, msg *Message) (map[string]any, error)

// ArgsParser fills state from a message received by a Got step. The key
// being collected is stored under KeyCurrentKey.
type ArgsParser func(ctx context.Context, msg *Message, state *State) error

// TypeUpdater computes the event type a continuation accepts when a matcher
// pauses or rejects. The default continues with TypeMessage.
type TypeUpdater func(ctx context.Context, msg *Message, state *State, current string) (string, error)

// Definition describes one responder: which messages it handles (type and
// rule), what it does (handler chain) and how it interacts with other
// responders (priority, block, temp).
//
// Definitions are created with NewDefinition or the Router's On* helpers.
// The handler chain may keep growing after registration; each run works on
// a private copy.
type Definition struct {
	id       uuid.UUID
	typ      string
	rule     Rule
	priority int
	block    bool
	temp     bool
	module   string
	gen      uint64 // guarded by the owning Registry

	mu           sync.RWMutex
	handlers     []Handler
	defaultState map[string]any
	stateFactory StateFactory
	argsParser   ArgsParser
	typeUpdater  TypeUpdater
}

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// Priority sets the tier. Lower values run first.
func Priority(p int) DefinitionOption {
	return func(d *Definition) { d.priority = p }
}

// Block stops lower priority tiers once this matcher has run.
func Block(block bool) DefinitionOption {
	return func(d *Definition) { d.block = block }
}

// Temp removes the definition after its rule matches once.
func Temp(temp bool) DefinitionOption {
	return func(d *Definition) { d.temp = temp }
}

// WithRule ANDs an extra rule into the definition's rule.
func WithRule(r Rule) DefinitionOption {
	return func(d *Definition) { d.rule = d.rule.And(r) }
}

// WithType sets the event type the definition accepts.
func WithType(typ string) DefinitionOption {
	return func(d *Definition) { d.typ = typ }
}

// WithHandlers appends handlers to the chain.
func WithHandlers(handlers ...Handler) DefinitionOption {
	return func(d *Definition) { d.appendHandlers(handlers...) }
}

// Module records the plugin or package that owns the definition.
func Module(name string) DefinitionOption {
	return func(d *Definition) { d.module = name }
}

// DefaultState seeds every run's state with a copy of state.
func DefaultState(state map[string]any) DefinitionOption {
	return func(d *Definition) { d.defaultState = maps.Clone(state) }
}

// WithStateFactory sets the factory that builds every run's initial state.
func WithStateFactory(f StateFactory) DefinitionOption {
	return func(d *Definition) { d.stateFactory = f }
}

// WithArgsParser sets the default parser used by Got steps.
func WithArgsParser(p ArgsParser) DefinitionOption {
	return func(d *Definition) { d.argsParser = p }
}

// WithTypeUpdater sets the continuation type updater.
func WithTypeUpdater(u TypeUpdater) DefinitionOption {
	return func(d *Definition) { d.typeUpdater = u }
}

// NewDefinition creates a Definition. It is not registered anywhere; pass
// it to Router.Register.
func NewDefinition(typ string, rule Rule, opts ...DefinitionOption) *Definition {
	d := &Definition{
		id:       uuid.New(),
		typ:      typ,
		rule:     rule,
		priority: DefaultPriority,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID returns the definition's identity.
func (d *Definition) ID() uuid.UUID { return d.id }

// Type returns the accepted event type.
func (d *Definition) Type() string { return d.typ }

// Rule returns the definition's rule.
func (d *Definition) Rule() Rule { return d.rule }

// Priority returns the tier.
func (d *Definition) Priority() int { return d.priority }

// Blocks reports whether the definition stops lower tiers after running.
func (d *Definition) Blocks() bool { return d.block }

// Temp reports whether the definition is removed after matching once.
func (d *Definition) Temp() bool { return d.temp }

// Module returns the owning module name.
func (d *Definition) Module() string { return d.module }

// Handlers returns a copy of the handler chain.
func (d *Definition) Handlers() []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.handlers)
}

// DefaultStateSnapshot returns a copy of the default state.
func (d *Definition) DefaultStateSnapshot() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.defaultState)
}

func (d *Definition) String() string {
	module := d.module
	if module == "" {
		module = "unknown"
	}
	return fmt.Sprintf("<Matcher from %s, type=%s, priority=%d, temp=%t>", module, d.typ, d.priority, d.temp)
}

// accepts reports whether the definition handles events of msg's type.
func (d *Definition) accepts(msg *Message) bool {
	return d.typ == "" || d.typ == TypeMessage || d.typ == msg.EventType()
}

func (d *Definition) appendHandlers(handlers ...Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range handlers {
		if h.Name == "" {
			h.Name = fmt.Sprintf("handler-%d", len(d.handlers))
		}
		d.handlers = append(d.handlers, h)
	}
}

// AppendHandler adds handlers to the end of the chain.
func (d *Definition) AppendHandler(handlers ...Handler) *Definition {
	d.appendHandlers(handlers...)
	return d
}

// Handle adds handler functions to the end of the chain.
func (d *Definition) Handle(fns ...HandlerFunc) *Definition {
	for _, fn := range fns {
		d.appendHandlers(Handle(fn))
	}
	return d
}

// Receive adds fn so that it runs on the next message. When the chain is
// empty fn handles the message that triggered the matcher.
func (d *Definition) Receive(fn HandlerFunc) *Definition {
	d.mu.RLock()
	waiting := len(d.handlers) > 0
	d.mu.RUnlock()
	if waiting {
		d.appendHandlers(Handler{Name: "receive", Fn: receive})
	}
	d.appendHandlers(Handle(fn))
	return d
}

func receive(context.Context, *Matcher, *Message, *State) error {
	return ErrPaused
}

// Got collects state[key] before running fn. If key is missing, prompt is
// sent (with {name} placeholders filled from state) and the matcher pauses;
// the next message is parsed into state[key] by parser (or the definition's
// args parser, or the raw text) and fn runs. When key is already present
// the prompt and parse are skipped. fn may be nil.
func (d *Definition) Got(key, prompt string, parser ArgsParser, fn HandlerFunc) *Definition {
	getter := func(ctx context.Context, m *Matcher, _ *Message, state *State) error {
		state.Set(KeyCurrentKey, key)
		if state.Has(key) {
			state.Set(keySkipKey, true)
			return nil
		}
		if prompt != "" {
			if err := m.Send(ctx, Interpolate(prompt, state)); err != nil {
				return err
			}
		}
		return ErrPaused
	}

	parse := func(ctx context.Context, _ *Matcher, msg *Message, state *State) error {
		if state.Has(key) && state.Has(keySkipKey) {
			state.Delete(keySkipKey)
			return nil
		}
		p := parser
		if p == nil {
			d.mu.RLock()
			p = d.argsParser
			d.mu.RUnlock()
		}
		if p != nil {
			return p(ctx, msg, state)
		}
		target := state.String(KeyCurrentKey)
		if target == "" {
			target = key
		}
		state.Set(target, msg.Text)
		return nil
	}

	d.appendHandlers(Handler{Name: "got:" + key, Fn: getter})
	if fn == nil {
		d.appendHandlers(Handler{Name: "parse:" + key, Fn: parse})
		return d
	}
	d.appendHandlers(Handler{Name: "got-handler:" + key, Fn: func(ctx context.Context, m *Matcher, msg *Message, state *State) error {
		if err := parse(ctx, m, msg, state); err != nil {
			return err
		}
		if err := fn(ctx, m, msg, state); err != nil {
			return err
		}
		state.Delete(KeyCurrentKey)
		return nil
	}})
	return d
}

// SetArgsParser replaces the default parser used by Got steps.
func (d *Definition) SetArgsParser(p ArgsParser) *Definition {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.argsParser = p
	return d
}

// SetTypeUpdater replaces the continuation type updater.
func (d *Definition) SetTypeUpdater(u TypeUpdater) *Definition {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typeUpdater = u
	return d
}

// SetStateFactory replaces the state factory.
func (d *Definition) SetStateFactory(f StateFactory) *Definition {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateFactory = f
	return d
}

func (d *Definition) hooks() (StateFactory, ArgsParser, TypeUpdater) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateFactory, d.argsParser, d.typeUpdater
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Interpolate replaces {name} placeholders in text with state values.
// Unknown names are left as is.
func Interpolate(text string, state *State) string {
	return placeholder.ReplaceAllStringFunc(text, func(ph string) string {
		key := ph[1 : len(ph)-1]
		if !state.Has(key) {
			return ph
		}
		return state.String(key)
	})
}
