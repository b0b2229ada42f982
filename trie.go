package monitor

import (
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/armon/go-radix"
	"github.com/rs/zerolog"
)

// Command is a parsed command token: the parts of a possibly nested command
// such as ("weather",) or ("test", "sub").
type Command []string

// Cmd builds a Command from its parts.
func Cmd(parts ...string) Command {
	return Command(parts)
}

// Equal reports whether c and other have the same parts.
func (c Command) Equal(other Command) bool {
	return slices.Equal(c, other)
}

func (c Command) String() string {
	return "(" + strings.Join(c, ", ") + ")"
}

// CommandMatch is the result of a trie lookup: the literal key found in the
// message and the command it maps to. Both are zero when nothing matched.
type CommandMatch struct {
	Raw     string
	Command Command
}

// Matched reports whether the lookup found a key.
func (m CommandMatch) Matched() bool {
	return m.Command != nil
}

// Trie indexes literal command strings for longest-prefix and
// longest-suffix recognition of command-style messages.
//
// Suffix keys are stored reversed so that "ends with" becomes a
// longest-prefix lookup on the reversed text. The first registration of a
// key wins; later ones are logged and ignored.
type Trie struct {
	mu     sync.RWMutex
	prefix *radix.Tree
	suffix *radix.Tree
	log    zerolog.Logger
}

// NewTrie creates an empty Trie logging duplicates to log.
func NewTrie(log zerolog.Logger) *Trie {
	return &Trie{
		prefix: radix.New(),
		suffix: radix.New(),
		log:    log.With().Str("component", "trie").Logger(),
	}
}

// AddPrefix maps key to cmd for prefix lookups. It returns false, leaving
// the stored value untouched, if key is already present.
func (t *Trie) AddPrefix(key string, cmd Command) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.prefix.Get(key); ok {
		t.log.Warn().Str("key", key).Msg("Duplicated prefix rule")
		return false
	}
	t.prefix.Insert(key, cmd)
	return true
}

// AddSuffix maps key to cmd for suffix lookups. It returns false, leaving
// the stored value untouched, if key is already present.
func (t *Trie) AddSuffix(key string, cmd Command) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rev := reverse(key)
	if _, ok := t.suffix.Get(rev); ok {
		t.log.Warn().Str("key", key).Msg("Duplicated suffix rule")
		return false
	}
	t.suffix.Insert(rev, cmd)
	return true
}

// LookupPrefix finds the longest registered prefix of text after trimming
// leading whitespace.
func (t *Trie) LookupPrefix(text string) (CommandMatch, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key, v, ok := t.prefix.LongestPrefix(strings.TrimLeftFunc(text, unicode.IsSpace))
	if !ok {
		return CommandMatch{}, false
	}
	return CommandMatch{Raw: key, Command: v.(Command)}, true
}

// LookupSuffix finds the longest registered suffix of text after trimming
// trailing whitespace. Raw holds the key as registered, not reversed.
func (t *Trie) LookupSuffix(text string) (CommandMatch, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key, v, ok := t.suffix.LongestPrefix(reverse(strings.TrimRightFunc(text, unicode.IsSpace)))
	if !ok {
		return CommandMatch{}, false
	}
	return CommandMatch{Raw: reverse(key), Command: v.(Command)}, true
}

// Resolve looks up msg's text in both indexes and records the results under
// KeyPrefix and KeySuffix. Misses are stored as zero CommandMatch values so
// command rules can always read them.
func (t *Trie) Resolve(msg *Message, state *State) (prefix, suffix CommandMatch) {
	prefix, _ = t.LookupPrefix(msg.Text)
	suffix, _ = t.LookupSuffix(msg.Text)
	state.Set(KeyPrefix, prefix)
	state.Set(KeySuffix, suffix)
	return prefix, suffix
}

// Len returns the number of prefix and suffix keys.
func (t *Trie) Len() (prefixes, suffixes int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.prefix.Len(), t.suffix.Len()
}

func reverse(s string) string {
	r := []rune(s)
	slices.Reverse(r)
	return string(r)
}
