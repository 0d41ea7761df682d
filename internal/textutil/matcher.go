package textutil

import (
	"cmp"
	"slices"
)

// Matcher finds the longest registered literal at the start of a string.
// It is a byte trie built once from its keys and is safe for concurrent use.
type Matcher struct {
	root node
	keys []string
}

type node struct {
	next     map[byte]*node
	terminal bool
}

// NewMatcher builds a Matcher over keys. Empty and repeated keys are ignored.
func NewMatcher(keys []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		m.keys = append(m.keys, key)

		n := &m.root
		for i := 0; i < len(key); i++ {
			if n.next == nil {
				n.next = make(map[byte]*node)
			}
			child, ok := n.next[key[i]]
			if !ok {
				child = &node{}
				n.next[key[i]] = child
			}
			n = child
		}
		n.terminal = true
	}

	// Longest first, the order an alternation would need to try them in.
	slices.SortStableFunc(m.keys, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
	return m
}

// Match returns the longest key that is a prefix of s.
func (m *Matcher) Match(s string) (string, bool) {
	n := &m.root
	best := 0
	for i := 0; i < len(s); i++ {
		child, ok := n.next[s[i]]
		if !ok {
			break
		}
		n = child
		if n.terminal {
			best = i + 1
		}
	}
	if best == 0 {
		return "", false
	}
	return s[:best], true
}

// Keys returns the registered keys, longest first.
func (m *Matcher) Keys() []string {
	return slices.Clone(m.keys)
}

func (m *Matcher) Len() int {
	return len(m.keys)
}
