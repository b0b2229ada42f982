package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
)

// regexTimeout bounds a single regex evaluation so a pathological pattern
// cannot stall a dispatch.
const regexTimeout = time.Second

// StartsWith matches messages whose text starts with any of prefixes.
func StartsWith(kind ChatKind, ignoreCase bool, prefixes ...string) Rule {
	return textRule(kind, ignoreCase, prefixes, strings.HasPrefix)
}

// EndsWith matches messages whose text ends with any of suffixes.
func EndsWith(kind ChatKind, ignoreCase bool, suffixes ...string) Rule {
	return textRule(kind, ignoreCase, suffixes, strings.HasSuffix)
}

// FullMatch matches messages whose whole text equals one of texts.
func FullMatch(kind ChatKind, ignoreCase bool, texts ...string) Rule {
	return textRule(kind, ignoreCase, texts, func(s, t string) bool { return s == t })
}

// fold applies full Unicode case folding ("Straße" and "STRASSE" fold to
// the same string).
func fold(s string) string {
	return cases.Fold().String(s)
}

func textRule(kind ChatKind, ignoreCase bool, candidates []string, cmp func(s, t string) bool) Rule {
	if ignoreCase {
		folded := make([]string, len(candidates))
		for i, c := range candidates {
			folded[i] = fold(c)
		}
		candidates = folded
	}
	return NewRule(func(_ context.Context, msg *Message, _ *State) (bool, error) {
		if !kindMatches(kind, msg) {
			return false, nil
		}
		text := msg.Text
		if ignoreCase {
			text = fold(text)
		}
		for _, c := range candidates {
			if cmp(text, c) {
				return true, nil
			}
		}
		return false, nil
	})
}

// Keyword matches messages containing at least one of keywords.
func Keyword(kind ChatKind, keywords ...string) Rule {
	return keywordRule(kind, false, keywords)
}

// KeywordAll matches messages containing every one of keywords.
func KeywordAll(kind ChatKind, keywords ...string) Rule {
	return keywordRule(kind, true, keywords)
}

func keywordRule(kind ChatKind, all bool, keywords []string) Rule {
	return NewRule(func(_ context.Context, msg *Message, _ *State) (bool, error) {
		if !kindMatches(kind, msg) || msg.Text == "" || len(keywords) == 0 {
			return false, nil
		}
		for _, k := range keywords {
			found := strings.Contains(msg.Text, k)
			if found && !all {
				return true, nil
			}
			if !found && all {
				return false, nil
			}
		}
		return all, nil
	})
}

// Regex matches messages whose text contains a match of pattern. On a match
// it stores the matched text under KeyMatched, every group in the order its
// opening parenthesis appears in pattern under KeyMatchedGroups, and the
// named groups under KeyMatchedDict. Groups that did not participate are "".
func Regex(kind ChatKind, pattern string, opts regexp2.RegexOptions) (Rule, error) {
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return Rule{}, fmt.Errorf("compile regex %q: %w", pattern, err)
	}
	re.MatchTimeout = regexTimeout
	order := groupOrder(re, pattern, opts)

	return NewRule(func(_ context.Context, msg *Message, state *State) (bool, error) {
		if !kindMatches(kind, msg) {
			return false, nil
		}
		m, err := re.FindStringMatch(msg.Text)
		if err != nil {
			return false, fmt.Errorf("regex %q: %w", pattern, err)
		}
		if m == nil {
			return false, nil
		}

		positional := make([]string, 0, len(order))
		named := make(map[string]string)
		for _, num := range order {
			g := m.GroupByNumber(num)
			var v string
			if g != nil && len(g.Captures) > 0 {
				v = g.String()
			}
			positional = append(positional, v)
			if g != nil {
				if _, err := strconv.Atoi(g.Name); err != nil {
					named[g.Name] = v
				}
			}
		}

		state.Set(KeyMatched, m.String())
		state.Set(KeyMatchedGroups, positional)
		state.Set(KeyMatchedDict, named)
		return true, nil
	}), nil
}

// groupOrder returns re's capturing group numbers ordered by where each
// group opens in pattern. regexp2 numbers unnamed groups before named ones;
// handlers expect the order they read in the pattern. When the scan does not
// account for every group (unusual syntax) the regexp2 numbering is kept.
func groupOrder(re *regexp2.Regexp, pattern string, opts regexp2.RegexOptions) []int {
	var numbers []int
	for _, n := range re.GetGroupNumbers() {
		if n != 0 {
			numbers = append(numbers, n)
		}
	}

	explicit := opts&regexp2.ExplicitCapture != 0
	var order []int
	seen := make(map[int]bool)
	unnamed := 0
	add := func(n int) {
		if n > 0 && !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}

	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
			}
		case c == '(':
			rest := pattern[i+1:]
			if !strings.HasPrefix(rest, "?") {
				if !explicit {
					unnamed++
					add(unnamed)
				}
				continue
			}
			if name, ok := groupName(rest); ok {
				add(re.GroupNumberFromName(name))
			}
		}
	}

	if len(order) != len(numbers) {
		return numbers
	}
	return order
}

// groupName extracts the name of a named group from the text following its
// opening parenthesis: ?<name>, ?'name' or ?P<name>.
func groupName(rest string) (string, bool) {
	var term byte
	switch {
	case strings.HasPrefix(rest, "?P<"):
		rest, term = rest[3:], '>'
	case strings.HasPrefix(rest, "?<") && !strings.HasPrefix(rest, "?<=") && !strings.HasPrefix(rest, "?<!"):
		rest, term = rest[2:], '>'
	case strings.HasPrefix(rest, "?'"):
		rest, term = rest[2:], '\''
	default:
		return "", false
	}
	end := strings.IndexByte(rest, term)
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}

// MustRegex is like Regex but panics if pattern does not compile.
func MustRegex(kind ChatKind, pattern string, opts regexp2.RegexOptions) Rule {
	r, err := Regex(kind, pattern, opts)
	if err != nil {
		panic(err)
	}
	return r
}

// MentionsMe matches group messages that contain "@"+botName. Messages
// outside group chats always match. Without a bot name no group message
// matches.
func MentionsMe(kind ChatKind, botName string) Rule {
	marker := "@" + botName
	return NewRule(func(_ context.Context, msg *Message, _ *State) (bool, error) {
		if !kindMatches(kind, msg) {
			return false, nil
		}
		if msg.Kind == ChatGroup {
			return botName != "" && strings.Contains(msg.Text, marker), nil
		}
		return true, nil
	})
}

// HasFields matches messages whose raw payload contains every path.
func HasFields(paths ...string) Rule {
	return NewRule(func(_ context.Context, msg *Message, _ *State) (bool, error) {
		v := msg.Payload()
		for _, p := range paths {
			if !v.HasField(p) {
				return false, nil
			}
		}
		return true, nil
	})
}

// FieldEquals matches messages whose raw payload has a string at path equal
// to value.
func FieldEquals(path, value string) Rule {
	return NewRule(func(_ context.Context, msg *Message, _ *State) (bool, error) {
		s, ok := msg.Payload().GetString(path)
		return ok && s == value, nil
	})
}

// SameSession matches messages from the same sender in the same
// conversation as origin. Continuations use it so a paused conversation
// only resumes on its own participant's next message.
func SameSession(origin *Message) Rule {
	session := origin.Session()
	return NewRule(func(_ context.Context, msg *Message, _ *State) (bool, error) {
		return msg.Session() == session, nil
	})
}

// commandRule matches when the prefix resolved into state is one of cmds.
func commandRule(kind ChatKind, cmds []Command) Rule {
	return NewRule(func(_ context.Context, msg *Message, state *State) (bool, error) {
		if !kindMatches(kind, msg) {
			return false, nil
		}
		got := state.Prefix().Command
		if got == nil {
			return false, nil
		}
		for _, c := range cmds {
			if c.Equal(got) {
				return true, nil
			}
		}
		return false, nil
	})
}

// commandKeys returns every literal prefix form of cmd: each start marker
// followed by the parts joined with each separator.
func commandKeys(cmd Command, starts, seps []string) []string {
	var keys []string
	if len(cmd) == 1 {
		for _, start := range starts {
			keys = append(keys, start+cmd[0])
		}
		return keys
	}
	for _, start := range starts {
		for _, sep := range seps {
			keys = append(keys, start+strings.Join(cmd, sep))
		}
	}
	return keys
}
