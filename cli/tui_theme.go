package cli

import "github.com/charmbracelet/lipgloss"

type tuiTheme struct {
	canvas      lipgloss.Style
	panel       lipgloss.Style
	title       lipgloss.Style
	subtitle    lipgloss.Style
	text        lipgloss.Style
	prose       lipgloss.Style
	muted       lipgloss.Style
	ok          lipgloss.Style
	warn        lipgloss.Style
	danger      lipgloss.Style
	info        lipgloss.Style
	highlight   lipgloss.Style
	help        lipgloss.Style
	railDone    lipgloss.Style
	railCurrent lipgloss.Style
	railPending lipgloss.Style
}

func newTUITheme() tuiTheme {
	return tuiTheme{
		canvas: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E3DED4")).
			Background(lipgloss.Color("#14110F")),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#4C4540")).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E8C07D")),
		subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CFC8BC")),
		text: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E3DED4")),
		prose: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0EBE0")),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#837B70")),
		ok: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8FBC7F")),
		warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0AF68")),
		danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DB6B6B")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FB4D8")),
		highlight: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#14110F")).
			Background(lipgloss.Color("#E8C07D")),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9A9184")),
		railDone: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8FBC7F")),
		railCurrent: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E8C07D")),
		railPending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#837B70")),
	}
}
