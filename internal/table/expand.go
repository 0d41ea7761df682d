package table

import (
	"strings"
	"unicode/utf8"

	"github.com/jusunglee/itrans/internal/textutil"
)

// expandValues replaces {name} references in every cell with the referenced
// row's text for the same language, then decodes \u escapes and U+ code
// point identifiers.
func (t *Table) expandValues() error {
	for i := range t.rows {
		r := &t.rows[i]
		for k, v := range r.values {
			if v == "" {
				continue
			}
			out, ok := t.expand(v, k)
			if !ok {
				return dataError(r.line, ErrCircularReference, "%s %s: %q", r.name, t.languages[k], v)
			}
			r.values[k] = textutil.DecodeCodePoints(textutil.DecodeEscapes(out))
		}
	}
	return nil
}

// expand reports false when s does not settle within maxExpansionPasses or
// settles on text that still holds a reference, as {a} -> {a} does.
func (t *Table) expand(s string, lang int) (string, bool) {
	for range maxExpansionPasses {
		next := t.expandOnce(s, lang)
		if next == s {
			return s, !t.hasReference(s)
		}
		s = next
	}
	return "", false
}

func (t *Table) expandOnce(s string, lang int) string {
	var b strings.Builder
	for p := 0; p < len(s); {
		if key, ok := t.nameKeys.Match(s[p:]); ok {
			i, _ := t.lookup(key)
			b.WriteString(t.rows[i].values[lang])
			p += len(key)
			continue
		}
		_, size := utf8.DecodeRuneInString(s[p:])
		b.WriteString(s[p : p+size])
		p += size
	}
	return b.String()
}

func (t *Table) hasReference(s string) bool {
	for p := 0; p < len(s); {
		if _, ok := t.nameKeys.Match(s[p:]); ok {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[p:])
		p += size
	}
	return false
}
