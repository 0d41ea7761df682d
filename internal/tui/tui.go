// Package tui is an interactive converter: type itrans text and watch the
// script and the code names update as you go.
package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jusunglee/itrans/internal/itrans"
	"github.com/jusunglee/itrans/internal/textutil"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	languageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	activeLanguageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("86")).
				Bold(true)

	scriptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	namesStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type Model struct {
	engine    *itrans.Engine
	languages []string
	language  int
	textInput textinput.Model
	script    string
	names     string
	err       error
	width     int
}

// New starts on language when the table has it, otherwise on the table's
// first language.
func New(e *itrans.Engine, language string) Model {
	ti := textinput.New()
	ti.Placeholder = "namaste"
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 60

	m := Model{
		engine:    e,
		languages: e.Languages(),
		textInput: ti,
	}
	if i := slices.Index(m.languages, language); i >= 0 {
		m.language = i
	}
	return m
}

// Language is the language output is currently rendered in.
func (m Model) Language() string {
	if len(m.languages) == 0 {
		return ""
	}
	return m.languages[m.language]
}

// Script is the converted text as characters.
func (m Model) Script() string { return m.script }

// Names is the converted text as bracketed code names.
func (m Model) Names() string { return m.names }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textInput.Width = max(msg.Width-4, 20)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.cycle(1)
			return m, nil
		case tea.KeyShiftTab:
			m.cycle(-1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	m.convert()
	return m, cmd
}

func (m *Model) cycle(step int) {
	if len(m.languages) == 0 {
		return
	}
	m.language = (m.language + step + len(m.languages)) % len(m.languages)
	m.convert()
}

func (m *Model) convert() {
	text := m.textInput.Value()
	opts := itrans.Options{Language: m.Language(), Format: itrans.FormatHTML7}

	script, err := m.engine.Convert(text, opts)
	if err != nil {
		m.err = err
		return
	}
	opts.Format = itrans.FormatNames
	names, err := m.engine.Convert(text, opts)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.script = textutil.FromHTMLCodes(script)
	m.names = textutil.FromHTMLCodes(names)
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("itrans"))
	s.WriteString("\n")

	tabs := make([]string, len(m.languages))
	for i, lang := range m.languages {
		label := strings.TrimPrefix(lang, "#")
		if i == m.language {
			tabs[i] = activeLanguageStyle.Render(label)
		} else {
			tabs[i] = languageStyle.Render(label)
		}
	}
	s.WriteString(strings.Join(tabs, " "))
	s.WriteString("\n\n")

	s.WriteString(m.textInput.View())
	s.WriteString("\n\n")

	script := m.script
	if script == "" {
		script = " "
	}
	box := scriptStyle
	if m.width > 0 {
		box = box.Width(max(m.width-4, 20))
	}
	s.WriteString(box.Render(script))
	s.WriteString("\n")
	s.WriteString(namesStyle.Render(m.names))
	s.WriteString("\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(subtleStyle.Render("tab/shift+tab: language  esc: quit"))
	s.WriteString("\n")
	return s.String()
}

// Run blocks until the user quits.
func Run(e *itrans.Engine, language string) error {
	_, err := tea.NewProgram(New(e, language), tea.WithAltScreen()).Run()
	return err
}
