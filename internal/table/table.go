// Package table loads itrans transliteration tables: tab separated documents
// mapping input codes (ka, kSh, {ka}) to per-language output text.
package table

import (
	"slices"
	"strings"

	"github.com/jusunglee/itrans/internal/textutil"
)

// Row is one line of a table. A row is identified by its code name and is
// reachable from every one of its input codes as well as from {name}.
type Row struct {
	name   string
	typ    RowType
	inputs []string
	values []string
	line   int
}

func (r *Row) Name() string {
	return r.name
}

func (r *Row) Type() RowType {
	return r.typ
}

// Inputs returns the row's input codes in table order.
func (r *Row) Inputs() []string {
	return slices.Clone(r.inputs)
}

// Line is the line of the document the row was read from. Rows added for
// language columns report the header line.
func (r *Row) Line() int {
	return r.line
}

// Table is an immutable, validated transliteration table. It is safe for
// concurrent use.
type Table struct {
	rows      []Row
	languages []string
	langIndex map[string]int

	// names maps {name} to a row index, inputs maps input codes.
	names  map[string]int
	inputs map[string]int

	all      *textutil.Matcher
	langKeys *textutil.Matcher
	nameKeys *textutil.Matcher
}

// Rows returns the table rows followed by one command row per language.
func (t *Table) Rows() []*Row {
	rows := make([]*Row, len(t.rows))
	for i := range t.rows {
		rows[i] = &t.rows[i]
	}
	return rows
}

// Languages returns the language identifiers in column order, e.g. #sanskrit.
func (t *Table) Languages() []string {
	return slices.Clone(t.languages)
}

func (t *Table) IsLanguage(id string) bool {
	_, ok := t.langIndex[id]
	return ok
}

// Value returns the row's text for a language, or "" when the language is
// unknown or the cell is empty.
func (t *Table) Value(r *Row, language string) string {
	if r == nil {
		return ""
	}
	i, ok := t.langIndex[language]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

// RowForName looks a row up by code name.
func (t *Table) RowForName(name string) (*Row, bool) {
	i, ok := t.names[Braces.Wrap(name)]
	if !ok {
		return nil, false
	}
	return &t.rows[i], true
}

// DependentVowelName returns the code name of a vowel's dependent form.
func (t *Table) DependentVowelName(name string) string {
	return DependentVowelPrefix + name
}

// Match finds the longest key of the given alternation at the start of text
// and returns it with the row it selects.
func (t *Table) Match(text string, alt Alternation) (string, *Row, bool) {
	key, ok := t.matcher(alt).Match(text)
	if !ok {
		return "", nil, false
	}
	i, ok := t.lookup(key)
	if !ok {
		return "", nil, false
	}
	return key, &t.rows[i], true
}

// Keys returns the keys of an alternation, longest first.
func (t *Table) Keys(alt Alternation) []string {
	return t.matcher(alt).Keys()
}

func (t *Table) matcher(alt Alternation) *textutil.Matcher {
	switch alt {
	case LanguageKeys:
		return t.langKeys
	case NameKeys:
		return t.nameKeys
	default:
		return t.all
	}
}

func (t *Table) lookup(key string) (int, bool) {
	if i, ok := t.names[key]; ok {
		return i, true
	}
	i, ok := t.inputs[key]
	return i, ok
}

// String summarizes the table for logs.
func (t *Table) String() string {
	return "itrans table (" + strings.Join(t.languages, " ") + ")"
}
