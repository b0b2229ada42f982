package monitor

import (
	"github.com/dlclark/regexp2"
)

// Command returns a rule matching messages that start with one of cmds and
// indexes every literal form of cmds (each configured start marker, parts
// joined by each configured separator) in the router's trie.
func (r *Router) Command(kind ChatKind, cmds ...Command) Rule {
	for _, cmd := range cmds {
		for _, key := range commandKeys(cmd, r.cfg.CommandStart, r.cfg.CommandSep) {
			r.trie.AddPrefix(key, cmd)
		}
	}
	return commandRule(kind, cmds)
}

// ToMe returns a rule matching group messages that mention the configured
// bot name, and every direct message.
func (r *Router) ToMe(kind ChatKind) Rule {
	return MentionsMe(kind, r.cfg.BotName)
}

// On registers a definition of the given event type.
//
// Example:
//
//	r.On("friend_request", monitor.NewRule(), monitor.Priority(5)).
//	    Handle(acceptFriend)
func (r *Router) On(typ string, rule Rule, opts ...DefinitionOption) *Definition {
	return r.Register(NewDefinition(typ, rule, opts...))
}

// OnMessage registers a message definition. It blocks lower tiers unless
// Block(false) is given.
func (r *Router) OnMessage(rule Rule, opts ...DefinitionOption) *Definition {
	return r.On(TypeMessage, rule, append([]DefinitionOption{Block(true)}, opts...)...)
}

// OnStartsWith registers a message definition for texts starting with one
// of prefixes.
func (r *Router) OnStartsWith(kind ChatKind, ignoreCase bool, prefixes []string, opts ...DefinitionOption) *Definition {
	return r.OnMessage(StartsWith(kind, ignoreCase, prefixes...), opts...)
}

// OnEndsWith registers a message definition for texts ending with one of
// suffixes.
func (r *Router) OnEndsWith(kind ChatKind, ignoreCase bool, suffixes []string, opts ...DefinitionOption) *Definition {
	return r.OnMessage(EndsWith(kind, ignoreCase, suffixes...), opts...)
}

// OnFullMatch registers a message definition for texts equal to one of
// texts.
//
// Example:
//
//	r.OnFullMatch(monitor.ChatAny, false, []string{"ping"}).
//	    Handle(func(ctx context.Context, m *monitor.Matcher, _ *monitor.Message, _ *monitor.State) error {
//	        return m.Finish(ctx, "pong!")
//	    })
func (r *Router) OnFullMatch(kind ChatKind, ignoreCase bool, texts []string, opts ...DefinitionOption) *Definition {
	return r.OnMessage(FullMatch(kind, ignoreCase, texts...), opts...)
}

// OnKeyword registers a message definition for texts containing at least
// one of keywords.
func (r *Router) OnKeyword(kind ChatKind, keywords []string, opts ...DefinitionOption) *Definition {
	return r.OnMessage(Keyword(kind, keywords...), opts...)
}

// OnCommand registers a message definition for cmd and its aliases. Unlike
// the other helpers it does not block unless Block(true) is given.
func (r *Router) OnCommand(kind ChatKind, cmd Command, aliases []Command, opts ...DefinitionOption) *Definition {
	cmds := append([]Command{cmd}, aliases...)
	return r.OnMessage(r.Command(kind, cmds...), append([]DefinitionOption{Block(false)}, opts...)...)
}

// OnRegex registers a message definition for texts matching pattern. It
// fails if pattern does not compile.
func (r *Router) OnRegex(kind ChatKind, pattern string, flags regexp2.RegexOptions, opts ...DefinitionOption) (*Definition, error) {
	rule, err := Regex(kind, pattern, flags)
	if err != nil {
		return nil, err
	}
	return r.OnMessage(rule, opts...), nil
}

// OnToMe registers a message definition for messages addressed to the bot.
func (r *Router) OnToMe(kind ChatKind, opts ...DefinitionOption) *Definition {
	return r.OnMessage(r.ToMe(kind), opts...)
}
