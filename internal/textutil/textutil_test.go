package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherPrefersLongestKey(t *testing.T) {
	m := NewMatcher([]string{"i", "ii", "k", "kSh", "kh"})

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"iix", "ii", true},
		{"ix", "i", true},
		{"kSha", "kSh", true},
		{"kSa", "k", true},
		{"kha", "kh", true},
		{"xyz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := m.Match(tt.input)
		assert.Equal(t, tt.ok, ok, "Match(%q)", tt.input)
		assert.Equal(t, tt.want, got, "Match(%q)", tt.input)
	}
}

func TestMatcherMultibyteKeys(t *testing.T) {
	m := NewMatcher([]string{"ṅ", "~N", "{ka}", "{}"})

	got, ok := m.Match("ṅa")
	require.True(t, ok)
	assert.Equal(t, "ṅ", got)

	got, ok = m.Match("{}ka")
	require.True(t, ok)
	assert.Equal(t, "{}", got)

	// Shares the first byte of ṅ but is a different character.
	_, ok = m.Match("ṁ")
	assert.False(t, ok)
}

func TestMatcherKeysLongestFirst(t *testing.T) {
	m := NewMatcher([]string{"a", "aaa", "", "aa", "a"})

	assert.Equal(t, []string{"aaa", "aa", "a"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestBraces(t *testing.T) {
	b := Braces{Prefix: "{", Suffix: "}"}

	assert.Equal(t, "{ka}", b.Wrap("ka"))

	tests := []struct {
		word string
		want string
		ok   bool
	}{
		{"{ka}", "ka", true},
		{"{}", "", true},
		{"{", "", false},
		{"}", "", false},
		{"ka", "", false},
		{"{ka", "", false},
	}
	for _, tt := range tests {
		got, ok := b.Unwrap(tt.word)
		assert.Equal(t, tt.ok, ok, "Unwrap(%q)", tt.word)
		assert.Equal(t, tt.want, got, "Unwrap(%q)", tt.word)
	}
}

func TestDecodeCodePoints(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"{face-grin}", "{face-grin}"},
		{"0U+0066", "0f"},
		{"u+0915", "क"},
		{"U+110000", "U+110000"},
		{"U+0FFFFF", "\U000FFFFF"},
		{"0U+103456UUU", "0\U00103456UUU"},
		{"U+01F600", "😀"},
		{"U+D800", "U+D800"},
		{"U+094DU+200C", "\u094D\u200C"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeCodePoints(tt.input), "DecodeCodePoints(%q)", tt.input)
	}
}

func TestDecodeEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`a\uD83D\uDE00`, "a😀"},
		{`\u{1F600}`, "😀"},
		{`\u09CA\u0ACF`, "\u09CA\u0ACF"},
		{`\uD83D`, `\uD83D`},
		{`\u{110000}`, `\u{110000}`},
		{`no escapes`, "no escapes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeEscapes(tt.input), "DecodeEscapes(%q)", tt.input)
	}
}

func TestToHTMLCodes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"abc", "abc"},
		{"a😀", "a&#x01F600;"},
		{"\u09CA\u0ACF", "&#x09CA;&#x0ACF;"},
		{"\u007F", "&#x007F;"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTMLCodes(tt.input), "ToHTMLCodes(%q)", tt.input)
	}
}

func TestFromHTMLCodes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"&#x0915;&#x093F;", "\u0915\u093F"},
		{"a&#x01F600;", "a😀"},
		{"&#x27;", "'"},
		{"&amp; &lt;b&gt;", "&amp; &lt;b&gt;"},
		{"&#xD800;", "&#xD800;"},
		{"&#x110000;", "&#x110000;"},
		{"&#x0915", "&#x0915"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromHTMLCodes(tt.input), "FromHTMLCodes(%q)", tt.input)
	}

	for _, s := range []string{"क्ष", "a😀b", "\u007F"} {
		assert.Equal(t, s, FromHTMLCodes(ToHTMLCodes(s)))
	}
}

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`<abc'>`, "&lt;abc&#x27;&gt;"},
		{`<a=c>`, "&lt;a=c&gt;"},
		{`"a" & b`, "&quot;a&quot; &amp; b"},
		{"{ka}", "{ka}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeHTML(tt.input), "EscapeHTML(%q)", tt.input)
	}
}
