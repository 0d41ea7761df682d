package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// All six hex digits are accepted so that out-of-range values typed into a
// table stay visible instead of being silently truncated.
var codePointRE = regexp.MustCompile(`[Uu]\+[0-9A-Fa-f]{4,6}`)

var escapeRE = regexp.MustCompile(`\\u\{([0-9A-Fa-f]{1,6})\}|\\u([0-9A-Fa-f]{4})`)

var htmlCodeRE = regexp.MustCompile(`&#x([0-9A-Fa-f]{1,6});`)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// DecodeCodePoints replaces U+hhhh and u+hhhh identifiers (4 to 6 hex digits)
// with the characters they name. Values above U+10FFFF and surrogate code
// points are left as written.
func DecodeCodePoints(s string) string {
	return codePointRE.ReplaceAllStringFunc(s, func(id string) string {
		v, err := strconv.ParseUint(id[2:], 16, 32)
		if err != nil || !utf8.ValidRune(rune(v)) {
			return id
		}
		return string(rune(v))
	})
}

// DecodeEscapes replaces \uNNNN and \u{N...} escapes with the characters they
// name. A \uD8xx\uDCxx surrogate pair decodes to a single character.
func DecodeEscapes(s string) string {
	locs := escapeRE.FindAllStringSubmatchIndex(s, -1)
	if locs == nil {
		return s
	}

	var b strings.Builder
	last := 0
	for i := 0; i < len(locs); i++ {
		loc := locs[i]
		b.WriteString(s[last:loc[0]])
		last = loc[1]

		r := escapedRune(s, loc)
		if utf16.IsSurrogate(r) {
			if i+1 < len(locs) && locs[i+1][0] == loc[1] {
				if pair := utf16.DecodeRune(r, escapedRune(s, locs[i+1])); pair != utf8.RuneError {
					b.WriteRune(pair)
					last = locs[i+1][1]
					i++
					continue
				}
			}
			b.WriteString(s[loc[0]:loc[1]])
			continue
		}
		if !utf8.ValidRune(r) {
			b.WriteString(s[loc[0]:loc[1]])
			continue
		}
		b.WriteRune(r)
	}
	b.WriteString(s[last:])
	return b.String()
}

func escapedRune(s string, loc []int) rune {
	var digits string
	if loc[2] >= 0 {
		digits = s[loc[2]:loc[3]]
	} else {
		digits = s[loc[4]:loc[5]]
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return utf8.RuneError
	}
	return rune(v)
}

// EscapeHTML escapes the five characters that are unsafe inside HTML text and
// attribute values.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// ToHTMLCodes turns every character at or above U+007F into a numeric
// character reference: &#xHHHH; inside the BMP, &#xHHHHHH; above it.
func ToHTMLCodes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < 0x7F:
			b.WriteRune(r)
		case r <= 0xFFFF:
			fmt.Fprintf(&b, "&#x%04X;", r)
		default:
			fmt.Fprintf(&b, "&#x%06X;", r)
		}
	}
	return b.String()
}

// FromHTMLCodes turns the numeric character references written by ToHTMLCodes
// back into characters. Named entities and any other text are left as they
// are, so literal text copied through a conversion survives unchanged.
func FromHTMLCodes(s string) string {
	return htmlCodeRE.ReplaceAllStringFunc(s, func(ref string) string {
		v, err := strconv.ParseUint(ref[3:len(ref)-1], 16, 32)
		if err != nil || !utf8.ValidRune(rune(v)) {
			return ref
		}
		return string(rune(v))
	})
}
