package cli

import (
	"fmt"
	"strings"
)

// renderLifecycleRail draws the generation phases on one line, marking the
// phases already behind the backend, the active one, and the upcoming ones.
func renderLifecycleRail(theme tuiTheme, phases []string, current int) string {
	if len(phases) == 0 {
		return ""
	}

	parts := make([]string, 0, len(phases))
	for i, phase := range phases {
		switch {
		case i < current:
			parts = append(parts, theme.railDone.Render("✓ "+phase))
		case i == current:
			parts = append(parts, theme.railCurrent.Render("▸ "+phase))
		default:
			parts = append(parts, theme.railPending.Render("· "+phase))
		}
	}
	return strings.Join(parts, theme.railPending.Render("   "))
}

// renderHelpCard draws a bordered card with a title and one row per binding.
func renderHelpCard(theme tuiTheme, title string, rows []string, width int) string {
	if width < 20 {
		width = 20
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, theme.subtitle.Render(title))
	for _, row := range rows {
		key, desc, found := strings.Cut(row, "  ")
		if found {
			lines = append(lines, theme.highlight.Render(" "+key+" ")+" "+theme.text.Render(truncateRunes(strings.TrimSpace(desc), width-12)))
		} else {
			lines = append(lines, theme.text.Render(truncateRunes(row, width-4)))
		}
	}
	return theme.panel.Width(width).Render(strings.Join(lines, "\n"))
}

// renderSelectableList draws a titled list with one focused row, scrolling a
// window over the items so the focused row stays visible.
func renderSelectableList(theme tuiTheme, title string, items []string, selected int, width, height int) string {
	if width < 20 {
		width = 20
	}
	if height < 6 {
		height = 6
	}
	visible := height - 2
	if visible < 1 {
		visible = 1
	}

	start := 0
	if selected >= visible {
		start = selected - visible + 1
	}
	end := start + visible
	if end > len(items) {
		end = len(items)
	}

	lines := make([]string, 0, visible+1)
	lines = append(lines, theme.subtitle.Render(title))
	for i := start; i < end; i++ {
		row := truncateRunes(items[i], width-4)
		if i == selected {
			lines = append(lines, theme.highlight.Render("▸ "+row))
		} else {
			lines = append(lines, theme.text.Render("  "+row))
		}
	}
	if end < len(items) {
		lines = append(lines, theme.muted.Render(fmt.Sprintf("  … %d more", len(items)-end)))
	}
	return theme.panel.Width(width).Render(strings.Join(lines, "\n"))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return fmt.Sprintf("%s...", string(r[:limit-3]))
}
