package textutil

import "strings"

// Braces wraps words between a prefix and a suffix, as in {ka}.
type Braces struct {
	Prefix string
	Suffix string
}

func (b Braces) Wrap(word string) string {
	return b.Prefix + word + b.Suffix
}

// Unwrap strips the prefix and suffix. It reports false when word is not wrapped.
func (b Braces) Unwrap(word string) (string, bool) {
	if len(word) < len(b.Prefix)+len(b.Suffix) {
		return "", false
	}
	if !strings.HasPrefix(word, b.Prefix) || !strings.HasSuffix(word, b.Suffix) {
		return "", false
	}
	return word[len(b.Prefix) : len(word)-len(b.Suffix)], true
}
