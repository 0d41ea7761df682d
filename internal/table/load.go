package table

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jusunglee/itrans/internal/textutil"
)

type column struct {
	title string
	pos   int
}

type header struct {
	line      int
	input     int
	typ       int
	name      int
	languages []column
}

type builder struct {
	log    *slog.Logger
	header *header
	rows   []Row
}

// Load reads a table document from r. UTF-8 with or without a byte order mark
// is accepted, as is UTF-16 with a byte order mark. Warnings about the data
// go to log; a nil log discards them.
func Load(r io.Reader, log *slog.Logger) (*Table, error) {
	text, err := ReadText(r)
	if err != nil {
		return nil, err
	}
	return Parse(text, log)
}

// ReadText reads a table document as UTF-8 text, honoring a UTF-8 or UTF-16
// byte order mark.
func ReadText(r io.Reader) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, dec))
	if err != nil {
		return "", fmt.Errorf("reading table: %w", err)
	}
	return string(data), nil
}

// Parse builds a table from tab separated text. Lines before the header line
// are ignored, as are blank lines and columns that are neither required nor
// language columns. It returns a complete table or an error, never both.
func Parse(tsv string, log *slog.Logger) (*Table, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	b := &builder{log: log}
	if err := b.read(strings.TrimPrefix(tsv, "\uFEFF")); err != nil {
		return nil, err
	}
	t, err := b.build()
	if err != nil {
		return nil, err
	}

	log.Info("loaded itrans table",
		"rows", len(t.rows)-len(t.languages),
		"languages", len(t.languages),
		"keys", t.all.Len(),
	)
	return t, nil
}

func (b *builder) read(tsv string) error {
	for i, line := range strings.Split(tsv, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		if b.header == nil {
			h, err := parseHeader(cells, i+1)
			if err != nil {
				return err
			}
			b.header = h
			continue
		}
		b.addRow(cells, i+1)
	}
	return nil
}

// parseHeader returns nil when cells are not the header line.
func parseHeader(cells []string, line int) (*header, error) {
	titles := lo.Map(cells, func(c string, _ int) string { return strings.TrimSpace(c) })
	if !lo.Every(titles, []string{ColumnInput, ColumnType, ColumnCodeName}) {
		return nil, nil
	}

	h := &header{line: line}
	seen := make(map[string]struct{}, len(titles))
	for pos, title := range titles {
		switch title {
		case ColumnInput, ColumnType, ColumnCodeName:
		default:
			if !strings.HasPrefix(title, LanguagePrefix) {
				continue
			}
		}
		if _, ok := seen[title]; ok {
			return nil, dataError(line, ErrDuplicateHeader, "%q", title)
		}
		seen[title] = struct{}{}

		switch title {
		case ColumnInput:
			h.input = pos
		case ColumnType:
			h.typ = pos
		case ColumnCodeName:
			h.name = pos
		default:
			h.languages = append(h.languages, column{title: title, pos: pos})
		}
	}
	return h, nil
}

func (b *builder) addRow(cells []string, line int) {
	var missing []string
	cell := func(title string, pos int) string {
		if pos >= len(cells) {
			missing = append(missing, title)
			return ""
		}
		return strings.TrimSpace(cells[pos])
	}

	h := b.header
	row := Row{
		line:   line,
		inputs: splitInputs(cell(ColumnInput, h.input)),
		typ:    RowType(cell(ColumnType, h.typ)),
		name:   cell(ColumnCodeName, h.name),
		values: make([]string, len(h.languages)),
	}
	for k, col := range h.languages {
		row.values[k] = cell(col.title, col.pos)
	}

	if len(missing) > 0 {
		b.log.Warn("table row has missing cells", "line", line, "name", row.name, "columns", missing)
	}
	if !row.typ.known() {
		b.log.Warn("unknown input type, treating row as normal", "line", line, "name", row.name, "type", string(row.typ))
	}
	b.rows = append(b.rows, row)
}

func splitInputs(cell string) []string {
	inputs := lo.Map(strings.Split(cell, InputSeparator), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Uniq(lo.Compact(inputs))
}

func (b *builder) build() (*Table, error) {
	h := b.header
	if h == nil {
		return nil, &DataError{Err: ErrMissingHeader}
	}
	if len(b.rows) == 0 {
		return nil, &DataError{Line: h.line, Err: ErrNoRows}
	}
	if len(h.languages) == 0 {
		return nil, &DataError{Line: h.line, Err: ErrNoLanguages}
	}

	t := &Table{
		rows:      b.rows,
		languages: lo.Map(h.languages, func(c column, _ int) string { return c.title }),
		langIndex: make(map[string]int, len(h.languages)),
		names:     make(map[string]int, len(b.rows)+len(h.languages)),
		inputs:    make(map[string]int, len(b.rows)+len(h.languages)),
	}
	for k, lang := range t.languages {
		t.langIndex[lang] = k
		t.rows = append(t.rows, Row{
			name:   lang,
			typ:    Command,
			inputs: []string{lang},
			values: make([]string, len(t.languages)),
			line:   h.line,
		})
	}

	for i := range t.rows {
		if err := t.index(i); err != nil {
			return nil, err
		}
	}

	keys := lo.UniqKeys(t.names, t.inputs)
	slices.Sort(keys)
	t.all = textutil.NewMatcher(keys)
	t.langKeys = textutil.NewMatcher(lo.Filter(keys, func(k string, _ int) bool {
		return strings.HasPrefix(k, LanguagePrefix)
	}))
	t.nameKeys = textutil.NewMatcher(lo.Filter(keys, func(k string, _ int) bool {
		_, ok := Braces.Unwrap(k)
		return ok
	}))

	b.checkVowels(t)

	if err := t.expandValues(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) index(i int) error {
	r := &t.rows[i]
	if r.name == "" {
		return dataError(r.line, ErrEmptyCodeName, "inputs %q", strings.Join(r.inputs, InputSeparator))
	}

	key := Braces.Wrap(r.name)
	if j, ok := t.names[key]; ok && j != i {
		return dataError(r.line, ErrDuplicateName, "%q also on line %d", r.name, t.rows[j].line)
	}
	if j, ok := t.inputs[key]; ok && j != i {
		return dataError(r.line, ErrDuplicateKey, "%q is an input of %q on line %d", key, t.rows[j].name, t.rows[j].line)
	}
	t.names[key] = i

	for _, in := range r.inputs {
		if j, ok := t.lookup(in); ok && j != i {
			return dataError(r.line, ErrDuplicateKey, "%q already selects %q on line %d", in, t.rows[j].name, t.rows[j].line)
		}
		t.inputs[in] = i
	}
	return nil
}

func (b *builder) checkVowels(t *Table) {
	for i := range t.rows {
		r := &t.rows[i]
		if r.typ != Vowel {
			continue
		}
		dv := t.DependentVowelName(r.name)
		if _, ok := t.RowForName(dv); !ok {
			b.log.Warn("vowel has no dependent vowel row", "line", r.line, "vowel", r.name, "missing", dv)
		}
	}
}
