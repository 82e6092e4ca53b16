package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/storyloom/storyloom/logbuf"
)

// ledgerModel renders the bounded activity log. Entries live in the shared
// logbuf.Buffer; the model mirrors them wholesale on each change so View
// stays pure.
type ledgerModel struct {
	viewport   viewport.Model
	entries    []logbuf.Entry
	width      int
	height     int
	theme      tuiTheme
	paused     bool
	autoScroll bool
}

func newLedgerModel(theme tuiTheme) ledgerModel {
	vp := viewport.New(0, 0)
	vp.YPosition = 0

	return ledgerModel{
		viewport:   vp,
		theme:      theme,
		autoScroll: true,
	}
}

func (m ledgerModel) Update(msg tea.Msg) (ledgerModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			m.autoScroll = false
		case "down", "j":
			if m.viewport.AtBottom() {
				m.autoScroll = true
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)

	if m.viewport.AtBottom() {
		m.autoScroll = true
	}

	return m, cmd
}

func (m *ledgerModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h
	m.updateContent()
}

func (m *ledgerModel) setEntries(entries []logbuf.Entry) {
	m.entries = entries
	m.updateContent()
}

func (m *ledgerModel) updateContent() {
	m.viewport.SetContent(m.renderContent())
	if m.autoScroll && !m.paused {
		m.viewport.GotoBottom()
	}
}

func (m *ledgerModel) togglePause() {
	m.paused = !m.paused
}

func (m ledgerModel) renderContent() string {
	var b strings.Builder
	for _, e := range m.entries {
		levelStyle := m.theme.info
		switch e.Level {
		case logbuf.LevelWarn:
			levelStyle = m.theme.warn
		case logbuf.LevelError:
			levelStyle = m.theme.danger
		case logbuf.LevelOK:
			levelStyle = m.theme.ok
		}

		line := fmt.Sprintf("%s %s %s",
			m.theme.muted.Render(e.At.Format("15:04:05")),
			levelStyle.Render(strings.ToUpper(string(e.Level))),
			e.Text)
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m ledgerModel) View() string {
	return m.viewport.View()
}
