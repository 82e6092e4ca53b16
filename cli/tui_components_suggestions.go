package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/storyloom/storyloom/editor"
	"github.com/storyloom/storyloom/session"
)

// suggestionPanelModel renders the current batch and the manual-entry input.
type suggestionPanelModel struct {
	input       textinput.Model
	suggestions []editor.Suggestion
	state       session.State
	manualEntry bool
	width       int
	height      int
	theme       tuiTheme
}

func newSuggestionPanelModel(theme tuiTheme) suggestionPanelModel {
	ti := textinput.New()
	ti.Placeholder = "Type the next line, Enter commits, Esc cancels"
	ti.CharLimit = 0
	return suggestionPanelModel{
		input: ti,
		theme: theme,
	}
}

func (m *suggestionPanelModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.input.Width = w - 4
}

func (m *suggestionPanelModel) sync(state session.State, suggestions []editor.Suggestion, manualEntry bool) {
	m.state = state
	m.suggestions = suggestions
	m.manualEntry = manualEntry
}

func (m suggestionPanelModel) View() string {
	var lines []string

	switch {
	case m.manualEntry:
		lines = append(lines, m.theme.subtitle.Render("Manual entry"))
		lines = append(lines, m.input.View())
	case m.state == session.StateCommitting:
		lines = append(lines, m.theme.subtitle.Render("Suggestions"))
		lines = append(lines, m.theme.info.Render("Saving line..."))
	case m.state == session.StateGenerating:
		lines = append(lines, m.theme.subtitle.Render("Suggestions"))
		lines = append(lines, m.theme.info.Render("Thinking..."))
	case len(m.suggestions) == 0:
		lines = append(lines, m.theme.subtitle.Render("Suggestions"))
		lines = append(lines, m.theme.muted.Render("No suggestions. R regenerates, E writes manually."))
	default:
		lines = append(lines, m.theme.subtitle.Render("Suggestions"))
		// Wrap each candidate to the panel width; number with its ordinal
		// so digit shortcuts map 1:1.
		contentWidth := m.width - 6
		if contentWidth < 20 {
			contentWidth = 20
		}
		for _, s := range m.suggestions {
			label := m.theme.highlight.Render(fmt.Sprintf(" %d ", s.ID))
			bodyLines := strings.Split(m.theme.text.Width(contentWidth).Render(s.Content), "\n")
			lines = append(lines, label+" "+bodyLines[0])
			for _, extra := range bodyLines[1:] {
				lines = append(lines, "    "+extra)
			}
			if s.Reasoning != "" {
				lines = append(lines, "    "+m.theme.muted.Render(truncateRunes(s.Reasoning, contentWidth)))
			}
		}
	}

	return strings.Join(lines, "\n")
}
