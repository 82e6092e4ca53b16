package cli

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
)

// manuscriptModel shows the committed line sequence for the active chapter,
// pinned to the bottom so the writing position stays visible.
type manuscriptModel struct {
	viewport viewport.Model
	lines    []string
	width    int
	height   int
	theme    tuiTheme
}

func newManuscriptModel(theme tuiTheme) manuscriptModel {
	vp := viewport.New(0, 0)
	vp.YPosition = 0
	return manuscriptModel{
		viewport: vp,
		theme:    theme,
	}
}

func (m *manuscriptModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h
	m.updateContent()
}

func (m *manuscriptModel) setLines(lines []string) {
	m.lines = lines
	m.updateContent()
}

func (m *manuscriptModel) updateContent() {
	if len(m.lines) == 0 {
		m.viewport.SetContent(m.theme.muted.Render("Empty chapter. Accept a suggestion or press E to write the first line."))
		return
	}

	wrap := m.theme.prose
	if m.width > 0 {
		wrap = wrap.Width(m.width)
	}
	m.viewport.SetContent(wrap.Render(strings.Join(m.lines, "\n\n")))
	m.viewport.GotoBottom()
}

func (m manuscriptModel) View() string {
	return m.viewport.View()
}
