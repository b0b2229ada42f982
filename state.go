package monitor

import (
	"fmt"
	"maps"
	"sync"
)

// Well-known state keys written by the Router and built-in rules.
const (
	// KeyPrefix holds the CommandMatch of the longest registered prefix.
	KeyPrefix = "_prefix"
	// KeySuffix holds the CommandMatch of the longest registered suffix.
	KeySuffix = "_suffix"
	// KeyMatched holds the full text matched by a Regex rule.
	KeyMatched = "_matched"
	// KeyMatchedGroups holds the positional groups ([]string) of a Regex match.
	KeyMatchedGroups = "_matched_groups"
	// KeyMatchedDict holds the named groups (map[string]string) of a Regex match.
	KeyMatchedDict = "_matched_dict"
	// KeyCurrentKey holds the key a Got step is collecting.
	KeyCurrentKey = "_current_key"

	keySkipKey = "_skip_key"
)

// State is the mutable key/value bag scoped to one dispatch.
//
// The Router creates one State per dispatch; every matcher instance works on
// its own copy merged from the definition's default state. State is safe for
// concurrent use because sibling rule checks in a tier write to it.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState returns a State seeded with a copy of init.
func NewState(init map[string]any) *State {
	values := make(map[string]any, len(init))
	maps.Copy(values, init)
	return &State{values: values}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s *State) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// String returns the value under key formatted as a string, or "" when absent.
func (s *State) String(key string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Set stores value under key.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Merge copies every entry of values into the state, overwriting.
func (s *State) Merge(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.values, values)
}

// Snapshot returns a shallow copy of the state.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Len returns the number of keys.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Prefix returns the prefix command match resolved for this dispatch.
func (s *State) Prefix() CommandMatch {
	v, _ := s.Get(KeyPrefix)
	cm, _ := v.(CommandMatch)
	return cm
}

// Suffix returns the suffix command match resolved for this dispatch.
func (s *State) Suffix() CommandMatch {
	v, _ := s.Get(KeySuffix)
	cm, _ := v.(CommandMatch)
	return cm
}

// RegexMatch returns the artifacts stored by the last Regex rule that matched.
func (s *State) RegexMatch() (RegexMatch, bool) {
	full, ok := s.Get(KeyMatched)
	if !ok {
		return RegexMatch{}, false
	}
	m := RegexMatch{}
	m.Text, _ = full.(string)
	if v, ok := s.Get(KeyMatchedGroups); ok {
		m.Groups, _ = v.([]string)
	}
	if v, ok := s.Get(KeyMatchedDict); ok {
		m.Named, _ = v.(map[string]string)
	}
	return m, true
}

// RegexMatch groups what a Regex rule stores on success.
type RegexMatch struct {
	Text   string
	Groups []string
	Named  map[string]string
}
