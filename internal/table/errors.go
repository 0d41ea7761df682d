package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingHeader     = errors.New("no header line with INPUT, INPUT-TYPE and CODE-NAME columns")
	ErrDuplicateHeader   = errors.New("duplicate column title")
	ErrNoRows            = errors.New("no data rows")
	ErrNoLanguages       = errors.New("no language columns")
	ErrEmptyCodeName     = errors.New("empty code name")
	ErrDuplicateName     = errors.New("duplicate code name")
	ErrDuplicateKey      = errors.New("input code used by more than one row")
	ErrCircularReference = errors.New("unresolvable or circular {name} reference")
)

// DataError reports a problem with the table document. Err is one of the
// sentinel errors above.
type DataError struct {
	// Line is the 1-based line in the document, or 0 when the problem is not
	// tied to a line.
	Line   int
	Err    error
	Detail string
}

func (e *DataError) Error() string {
	var b strings.Builder
	b.WriteString("table data")
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func dataError(line int, err error, format string, args ...any) *DataError {
	return &DataError{Line: line, Err: err, Detail: fmt.Sprintf(format, args...)}
}
