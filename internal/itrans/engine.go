// Package itrans converts ITRANS romanized text into Indic scripts using a
// loaded table.
package itrans

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jusunglee/itrans/internal/table"
)

// InternalError reports a state the conversion should never reach with a
// table that passed loading.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "itrans internal error: " + e.Msg
}

// Options control a single conversion.
type Options struct {
	// Language is the initial language, e.g. #sanskrit. When it is not one
	// of the table's languages, conversion starts with itrans off and only
	// language markers are recognized.
	Language string
	Format   Format
}

// Engine converts text with one table. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	table *table.Table
}

func New(t *table.Table) *Engine {
	return &Engine{table: t}
}

func (e *Engine) Table() *table.Table {
	return e.table
}

// Languages returns the languages of the engine's table.
func (e *Engine) Languages() []string {
	return e.table.Languages()
}

type state struct {
	language     string
	itrans       bool
	inConsonants bool
	prev         *table.Row
}

// Convert transliterates input. Text between matches is copied through
// unchanged.
func (e *Engine) Convert(input string, opts Options) (string, error) {
	format := opts.Format
	if format == "" {
		format = DefaultFormat
	}
	if err := checkFormat(format); err != nil {
		return "", err
	}

	t := e.table
	var st state
	if t.IsLanguage(opts.Language) {
		st.language = opts.Language
		st.itrans = true
	}

	var out strings.Builder
	out.Grow(len(input) * 2)

	// One step past the end so that a trailing consonant run is closed.
	for p := 0; p <= len(input); {
		alt := table.LanguageKeys
		if st.itrans {
			alt = table.AllKeys
		}
		key, row, matched := t.Match(input[p:], alt)

		if matched && st.inConsonants && row.Type() == table.Vowel {
			dv := t.DependentVowelName(row.Name())
			dvRow, ok := t.RowForName(dv)
			if !ok {
				return "", &InternalError{Msg: fmt.Sprintf("vowel %q after a consonant has no %q row", row.Name(), dv)}
			}
			row = dvRow
		}

		if st.inConsonants {
			if glue := st.glue(row); glue != "" {
				g, _ := t.RowForName(glue)
				s, err := FormatToken(glue, t.Value(g, st.language), format)
				if err != nil {
					return "", err
				}
				out.WriteString(s)
			}
		}

		switch {
		case matched:
			s, err := FormatToken(row.Name(), t.Value(row, st.language), format)
			if err != nil {
				return "", err
			}
			out.WriteString(s)
			p += len(key)
		case p < len(input):
			_, size := utf8.DecodeRuneInString(input[p:])
			out.WriteString(input[p : p+size])
			p += size
		default:
			p++
		}

		if !matched {
			row = nil
		}
		st.advance(t, row)
	}
	return out.String(), nil
}

// glue returns the code name of the token that goes between an open
// consonant run and next, or "" for none. next is nil when nothing matched.
func (st *state) glue(next *table.Row) string {
	if next == nil {
		return table.NameEndWordVowel
	}
	if isConsonantModifier(next.Name()) {
		return ""
	}
	switch next.Type() {
	case table.DependentVowel:
		return ""
	case table.Consonant:
		prev := st.prev
		if prev == nil || prev.Name() == table.NameNoLigature {
			return ""
		}
		if prev.Type() == table.Consonant || prev.Name() == table.NameNukta || prev.Name() == table.NameNoOutput {
			return table.NameConsonantsJoiner
		}
		return ""
	default:
		return table.NameEndWordVowel
	}
}

func (st *state) advance(t *table.Table, row *table.Row) {
	if row == nil {
		st.inConsonants = false
		st.prev = nil
		return
	}

	name := row.Name()
	if name == table.NameItransToggle {
		st.itrans = !st.itrans
	}
	if row.Type() == table.Command && t.IsLanguage(name) {
		st.language = name
		st.itrans = true
	}
	st.inConsonants = row.Type() == table.Consonant || (st.inConsonants && isConsonantModifier(name))
	st.prev = row
}

// isConsonantModifier reports whether a row keeps an open consonant run open.
func isConsonantModifier(name string) bool {
	switch name {
	case table.NameNukta, table.NameNoOutput, table.NameConsonantsJoiner, table.NameNoLigature:
		return true
	}
	return false
}
