package table

import "github.com/jusunglee/itrans/internal/textutil"

// Column titles that identify the header line of a table.
const (
	ColumnInput    = "INPUT"
	ColumnType     = "INPUT-TYPE"
	ColumnCodeName = "CODE-NAME"
)

const (
	// LanguagePrefix marks language column titles, such as #sanskrit.
	LanguagePrefix = "#"
	// DependentVowelPrefix turns a vowel code name into the code name of its
	// dependent (matra) form: a -> dv-a.
	DependentVowelPrefix = "dv-"
	// InputSeparator separates alternate input codes in the INPUT column.
	InputSeparator = " | "

	maxExpansionPasses = 5
)

// Braces delimit code names inside input text and table cells.
var Braces = textutil.Braces{Prefix: "{", Suffix: "}"}

// RowType is the value of the INPUT-TYPE column.
type RowType string

const (
	Normal         RowType = ""
	Consonant      RowType = "consonant"
	Vowel          RowType = "vowel"
	DependentVowel RowType = "dependent-vowel"
	Command        RowType = "command"
)

func (t RowType) known() bool {
	switch t {
	case Normal, Consonant, Vowel, DependentVowel, Command:
		return true
	}
	return false
}

// Code names with a fixed meaning for the conversion engine.
const (
	NameConsonantsJoiner = "consonants-joiner"
	NameEndWordVowel     = "end-word-vowel"
	NameNoLigature       = "no-ligature"
	NameNoOutput         = "no-output"
	NameItransToggle     = "itrans-toggle"
	NameNukta            = "nukta"
)

// Alternation selects which keys Match considers.
type Alternation int

const (
	// AllKeys matches every input code and bracketed code name.
	AllKeys Alternation = iota
	// LanguageKeys matches only keys starting with LanguagePrefix.
	LanguageKeys
	// NameKeys matches only bracketed keys such as {ka}.
	NameKeys
)
