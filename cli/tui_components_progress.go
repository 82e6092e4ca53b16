package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/storyloom/storyloom/feed"
)

// beatProgressModel renders the within-chapter beat bar from the latest
// progress snapshot. When the backend reports no beat counts the bar is
// suppressed entirely rather than zero-filled.
type beatProgressModel struct {
	bar      progress.Model
	snapshot feed.Snapshot
	width    int
	theme    tuiTheme
}

func newBeatProgressModel(theme tuiTheme) beatProgressModel {
	return beatProgressModel{
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithoutPercentage(),
		),
		theme: theme,
	}
}

func (m *beatProgressModel) setSize(w int) {
	m.width = w
	available := w - 22
	if available < 10 {
		available = 10
	}
	m.bar.Width = available
}

func (m *beatProgressModel) setSnapshot(s feed.Snapshot) {
	m.snapshot = s
}

func (m beatProgressModel) View() string {
	s := m.snapshot
	if s.Phase == "" && s.Chapter == 0 {
		return m.theme.muted.Render("No generation activity yet")
	}

	status := m.theme.text.Render(fmt.Sprintf("Chapter %d · %s", s.Chapter, s.Phase))
	if s.Message != "" {
		status += m.theme.muted.Render("  " + truncateRunes(s.Message, m.width-30))
	}

	ratio, ok := s.BeatRatio()
	if !ok {
		return status
	}

	barView := lipgloss.JoinHorizontal(lipgloss.Center,
		m.theme.text.Width(6).Render("Beat"),
		m.bar.ViewAs(ratio),
		m.theme.muted.Render(fmt.Sprintf(" %d/%d", s.Beat, s.TotalBeats)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, status, barView)
}
