package itrans

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jusunglee/itrans/internal/table"
	"github.com/jusunglee/itrans/internal/textutil"
)

// Format selects how each matched token is written.
type Format string

const (
	// FormatNames writes the bracketed code name of every token, e.g. {ka}.
	FormatNames Format = "UNICODE-NAMES"
	// FormatHTML7 writes the token text as 7-bit HTML: characters above
	// U+007E become numeric character references.
	FormatHTML7 Format = "HTML7"
	// FormatUTF8 is recognized but not produced.
	FormatUTF8 Format = "UTF-8"
)

// DefaultFormat is used when no format is given.
const DefaultFormat = FormatNames

// Formats lists the formats Convert can produce.
var Formats = []Format{FormatNames, FormatHTML7}

var (
	ErrUnsupportedFormat = errors.New("output format is not supported")
	ErrUnknownFormat     = errors.New("unknown output format")
)

// ParseFormat parses a format name case-insensitively. An empty name selects
// DefaultFormat.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFormat, nil
	}
	for _, f := range []Format{FormatNames, FormatHTML7, FormatUTF8} {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func checkFormat(f Format) error {
	switch f {
	case FormatNames, FormatHTML7:
		return nil
	case FormatUTF8:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// FormatToken renders one token. The result is always HTML-safe 7-bit text.
func FormatToken(name, text string, f Format) (string, error) {
	if err := checkFormat(f); err != nil {
		return "", err
	}
	out := text
	if f == FormatNames {
		out = table.Braces.Wrap(name)
	}
	return textutil.ToHTMLCodes(textutil.EscapeHTML(out)), nil
}
