package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/storyloom/storyloom/config"
	"github.com/storyloom/storyloom/editor"
	"github.com/storyloom/storyloom/feed"
	"github.com/storyloom/storyloom/logbuf"
	"github.com/storyloom/storyloom/session"
	"github.com/storyloom/storyloom/store"
)

// Messages
type sessionChangedMsg struct{}

type generationCompleteMsg struct {
	ev feed.CompleteEvent
}

type chaptersMsg struct {
	chapters []editor.Chapter
	initial  bool
}

type chaptersErrMsg struct {
	err error
}

type configReloadedMsg struct{}

type sessionUIModel struct {
	theme tuiTheme

	width  int
	height int

	ctx    context.Context
	cancel context.CancelFunc

	projectID int
	serverURL string

	sess        *session.Session
	feedClient  *feed.Client
	storeClient *store.Client
	logs        *logbuf.Buffer

	chapters     []editor.Chapter
	chapterFocus int

	// Mirrored session/feed state, copied on each change notification so
	// View renders from plain fields.
	connState    feed.ConnState
	snapshot     feed.Snapshot
	sessionState session.State
	lines        []string
	suggestions  []editor.Suggestion
	manualEntry  bool
	chapterTitle string
	totalWords   int

	generationDone bool

	// Components
	ledger     ledgerModel
	beat       beatProgressModel
	manuscript manuscriptModel
	panel      suggestionPanelModel

	showHelp bool
	stopping bool
	err      error
	started  time.Time
}

var sessionPhases = []string{"Outline", "Beats", "Drafting", "Complete"}

func newSessionUIModel(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	sess *session.Session,
	feedClient *feed.Client,
	storeClient *store.Client,
	logs *logbuf.Buffer,
) sessionUIModel {
	theme := newTUITheme()
	return sessionUIModel{
		theme:        theme,
		ctx:          ctx,
		cancel:       cancel,
		projectID:    cfg.Project.ID,
		serverURL:    cfg.Server.URL,
		sess:         sess,
		feedClient:   feedClient,
		storeClient:  storeClient,
		logs:         logs,
		chapterFocus: -1,
		started:      time.Now(),
		ledger:       newLedgerModel(theme),
		beat:         newBeatProgressModel(theme),
		manuscript:   newManuscriptModel(theme),
		panel:        newSuggestionPanelModel(theme),
	}
}

func (m sessionUIModel) Init() tea.Cmd {
	return nil
}

func (m sessionUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()

	case tea.KeyMsg:
		if m.panel.input.Focused() {
			return m.updateManualEntry(msg)
		}
		if handled, next, cmd := m.handleShortcut(msg); handled {
			return next, cmd
		}

	case sessionChangedMsg:
		m.syncState()

	case generationCompleteMsg:
		m.generationDone = true
		m.syncState()
		cmds = append(cmds, refreshChaptersCmd(m.ctx, m.storeClient, m.projectID))

	case chaptersMsg:
		m.err = nil
		m.chapters = msg.chapters
		m.clampChapterFocus()
		if msg.initial {
			if ch, ok := pickInitialChapter(msg.chapters, writeChapterID); ok {
				m.sess.SelectChapter(m.ctx, ch)
			} else {
				m.logs.Append(logbuf.LevelInfo, "No chapters yet. Press N to create a draft chapter.")
			}
			m.syncState()
		}

	case chaptersErrMsg:
		m.err = msg.err
		m.logs.Appendf(logbuf.LevelError, "✗ Failed to load chapters: %v", msg.err)
		m.syncState()

	case configReloadedMsg:
		m.logs.Append(logbuf.LevelInfo, "Configuration reloaded")
		m.syncState()
	}

	m.ledger, cmd = m.ledger.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// updateManualEntry routes keys while the input field holds focus. All
// session shortcuts are disabled here so typing "r" or "2" never triggers
// them.
func (m sessionUIModel) updateManualEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := m.panel.input.Value()
		if err := m.sess.SubmitManual(m.ctx, text); err == nil {
			m.panel.input.SetValue("")
			m.panel.input.Blur()
		}
		m.syncState()
		return m, nil
	case "esc":
		m.panel.input.SetValue("")
		m.panel.input.Blur()
		m.sess.CancelManual()
		m.syncState()
		return m, nil
	case "ctrl+c":
		return m.quit()
	}

	var cmd tea.Cmd
	m.panel.input, cmd = m.panel.input.Update(msg)
	return m, cmd
}

func (m sessionUIModel) handleShortcut(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		next, cmd := m.quit()
		return true, next, cmd

	case "1", "2", "3", "4", "5":
		ordinal := int(key[0] - '0')
		// No-op when the slot is empty or a commit is already running.
		_ = m.sess.AcceptSuggestion(m.ctx, ordinal)
		m.syncState()
		return true, m, nil

	case "r":
		_ = m.sess.Regenerate(m.ctx)
		m.syncState()
		return true, m, nil

	case "e":
		if err := m.sess.EnterManual(); err == nil {
			cmd := m.panel.input.Focus()
			m.syncState()
			return true, m, cmd
		}
		return true, m, nil

	case "n":
		m.sess.CreateDraftChapter(m.ctx)
		return true, m, nil

	case "tab":
		m.cycleChapterFocus()
		return true, m, nil

	case "enter":
		if m.chapterFocus >= 0 && m.chapterFocus < len(m.chapters) {
			m.sess.SelectChapter(m.ctx, m.chapters[m.chapterFocus])
			m.syncState()
		}
		return true, m, nil

	case "p":
		m.ledger.togglePause()
		return true, m, nil

	case "?":
		m.showHelp = !m.showHelp
		return true, m, nil
	}

	return false, m, nil
}

func (m sessionUIModel) quit() (tea.Model, tea.Cmd) {
	if !m.stopping {
		m.stopping = true
		m.cancel()
	}
	return m, tea.Quit
}

// syncState mirrors session, feed, and log state into the model.
func (m *sessionUIModel) syncState() {
	m.connState = m.feedClient.State()
	m.snapshot = m.feedClient.Snapshot()
	m.sessionState = m.sess.State()
	m.lines = m.sess.Lines()
	m.suggestions = m.sess.Suggestions()
	m.manualEntry = m.sess.ManualEntry()
	m.chapterTitle = m.sess.ChapterTitle()
	m.totalWords = m.sess.TotalWords()

	m.ledger.setEntries(m.logs.Entries())
	m.beat.setSnapshot(m.snapshot)
	m.manuscript.setLines(m.lines)
	m.panel.sync(m.sessionState, m.suggestions, m.manualEntry)
}

func (m *sessionUIModel) cycleChapterFocus() {
	if len(m.chapters) == 0 {
		m.chapterFocus = -1
		return
	}
	m.chapterFocus++
	if m.chapterFocus >= len(m.chapters) {
		m.chapterFocus = -1
	}
}

func (m *sessionUIModel) clampChapterFocus() {
	if m.chapterFocus >= len(m.chapters) {
		m.chapterFocus = -1
	}
}

func pickInitialChapter(chapters []editor.Chapter, wantID int) (editor.Chapter, bool) {
	if len(chapters) == 0 {
		return editor.Chapter{}, false
	}
	if wantID > 0 {
		for _, ch := range chapters {
			if ch.ID == wantID {
				return ch, true
			}
		}
	}
	return chapters[0], true
}

func (m *sessionUIModel) recalculateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	leftW, _ := m.columnWidths()
	manuscriptH, panelH, ledgerH := m.leftHeights()

	m.manuscript.setSize(leftW-2, manuscriptH-3)
	m.panel.setSize(leftW-2, panelH-2)
	m.ledger.setSize(leftW-2, ledgerH-3)
	m.beat.setSize(leftW - 2)
}

func (m sessionUIModel) columnWidths() (int, int) {
	leftW := int(float64(m.width-2) * 0.66)
	if leftW < 40 {
		leftW = m.width - 2
	}
	rightW := (m.width - 2) - leftW
	if rightW < 26 {
		rightW = 26
		if leftW+rightW > m.width-2 {
			leftW = (m.width - 2) - rightW
		}
	}
	return leftW, rightW
}

// leftHeights splits the left column into manuscript, suggestion, and
// ledger panels. Chrome (header, rail, footer) eats roughly 9 rows.
func (m sessionUIModel) leftHeights() (int, int, int) {
	available := m.height - 9
	if available < 15 {
		available = 15
	}
	manuscript := int(float64(available) * 0.45)
	if manuscript < 6 {
		manuscript = 6
	}
	panel := int(float64(available) * 0.30)
	if panel < 6 {
		panel = 6
	}
	ledger := available - manuscript - panel
	if ledger < 5 {
		ledger = 5
	}
	return manuscript, panel, ledger
}

func (m sessionUIModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading session..."
	}

	top := m.renderHeader()
	rail := m.theme.panel.Width(m.width - 2).Render(renderLifecycleRail(m.theme, sessionPhases, m.phaseRailIndex()))
	content := m.renderMainPanels()
	help := m.renderFooter()

	if m.showHelp {
		helpCard := renderHelpCard(m.theme, "Controls", []string{
			"1-5  accept the numbered suggestion",
			"r  regenerate suggestions",
			"e  type a line manually (Enter commits, Esc cancels)",
			"tab/enter  focus and open a chapter",
			"n  create a new draft chapter",
			"p  pause ledger auto-scroll",
			"q  quit",
		}, m.width-2)
		return m.theme.canvas.Render(lipgloss.JoinVertical(lipgloss.Left, top, rail, content, helpCard, help))
	}

	return m.theme.canvas.Render(lipgloss.JoinVertical(lipgloss.Left, top, rail, content, help))
}

func (m sessionUIModel) phaseRailIndex() int {
	if m.generationDone {
		return len(sessionPhases) - 1
	}
	phase := strings.ToLower(m.snapshot.Phase)
	switch {
	case phase == "" || strings.Contains(phase, "outline"):
		return 0
	case strings.Contains(phase, "beat"):
		return 1
	case phase == "completed" || phase == "complete":
		return 3
	default:
		return 2
	}
}

func (m sessionUIModel) renderHeader() string {
	uptime := time.Since(m.started).Round(time.Second)
	title := m.theme.title.Render("storyloom write")

	chapterLabel := "no chapter"
	if ch, ok := m.sess.Chapter(); ok {
		chapterLabel = fmt.Sprintf("ch.%d %s", ch.Order, m.chapterTitle)
	}
	meta := m.theme.muted.Render(fmt.Sprintf(
		"project=%d  chapter=%s  words=%d",
		m.projectID,
		truncateRunes(chapterLabel, 40),
		m.totalWords,
	))

	connStyle := m.theme.warn
	if m.connState == feed.Connected {
		connStyle = m.theme.ok
	}
	info := m.theme.text.Render(fmt.Sprintf("server=%s  feed=", m.serverURL)) +
		connStyle.Render(m.connState.String()) +
		m.theme.text.Render(fmt.Sprintf("  uptime=%s", uptime))
	if m.stopping {
		info = m.theme.warn.Render("stopping...")
	}

	return m.theme.panel.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, title, meta, info))
}

func (m sessionUIModel) renderMainPanels() string {
	leftW, rightW := m.columnWidths()
	manuscriptH, panelH, ledgerH := m.leftHeights()

	manuscriptPanel := m.renderManuscriptPanel(leftW, manuscriptH)
	suggestPanel := m.theme.panel.Width(leftW).Height(panelH).Render(m.panel.View())
	ledgerPanel := m.renderLedgerPanel(leftW, ledgerH)
	leftCol := lipgloss.JoinVertical(lipgloss.Left, manuscriptPanel, suggestPanel, ledgerPanel)

	chapterH := (manuscriptH + panelH + ledgerH) / 2
	healthH := manuscriptH + panelH + ledgerH - chapterH
	rightCol := lipgloss.JoinVertical(lipgloss.Left,
		m.renderChapterPanel(rightW, chapterH),
		m.renderHealthPanel(rightW, healthH),
	)

	if leftW <= 0 {
		return rightCol
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, leftCol, rightCol)
}

func (m sessionUIModel) renderManuscriptPanel(width, height int) string {
	label := m.theme.subtitle.Render("Manuscript")
	body := lipgloss.JoinVertical(lipgloss.Left, label, m.beat.View(), m.manuscript.View())
	return m.theme.panel.Width(width).Height(height).Render(body)
}

func (m sessionUIModel) renderLedgerPanel(width, height int) string {
	label := m.theme.subtitle.Render("Activity")
	if m.ledger.paused {
		label += m.theme.warn.Render(" [paused]")
	}
	return m.theme.panel.Width(width).Height(height).Render(lipgloss.JoinVertical(lipgloss.Left, label, m.ledger.View()))
}

func (m sessionUIModel) renderChapterPanel(width, height int) string {
	if len(m.chapters) == 0 {
		lines := []string{
			m.theme.subtitle.Render("Chapters"),
			m.theme.muted.Render("No chapters yet (N creates one)"),
		}
		return m.theme.panel.Width(width).Height(height).Render(strings.Join(lines, "\n"))
	}

	selected, _ := m.sess.Chapter()
	items := make([]string, 0, len(m.chapters))
	for _, ch := range m.chapters {
		marker := "  "
		if ch.ID == selected.ID {
			marker = "* "
		}
		items = append(items, fmt.Sprintf("%s%d. %s (%dw)", marker, ch.Order, ch.Title, ch.WordCount))
	}
	return renderSelectableList(m.theme, "Chapters · tab/enter", items, m.chapterFocus, width, height)
}

func (m sessionUIModel) renderHealthPanel(width, height int) string {
	stateStyle := m.theme.info
	switch m.sessionState {
	case session.StateReady:
		stateStyle = m.theme.ok
	case session.StateCommitting:
		stateStyle = m.theme.warn
	}

	lines := []string{
		m.theme.subtitle.Render("Session"),
		m.theme.text.Render("State: ") + stateStyle.Render(m.sessionState.String()),
		m.theme.text.Render(fmt.Sprintf("Lines: %d", len(m.lines))),
		m.theme.text.Render(fmt.Sprintf("Words: %d", m.totalWords)),
		m.theme.text.Render(fmt.Sprintf("Suggestions: %d", len(m.suggestions))),
	}
	if m.generationDone {
		lines = append(lines, m.theme.ok.Render("Generation complete"))
	}
	if m.err != nil {
		lines = append(lines, m.theme.danger.Render("Error: "+truncateRunes(m.err.Error(), width-10)))
	}
	return m.theme.panel.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m sessionUIModel) renderFooter() string {
	parts := []string{
		m.theme.help.Render("1-5 accept"),
		m.theme.help.Render("r regen"),
		m.theme.help.Render("e manual"),
		m.theme.help.Render("tab chapter"),
		m.theme.help.Render("n new"),
		m.theme.help.Render("? help"),
		m.theme.help.Render("q quit"),
	}
	if m.ledger.paused {
		parts = append(parts, m.theme.warn.Render("ledger paused"))
	}
	return m.theme.panel.Width(m.width - 2).Render(strings.Join(parts, "  |  "))
}

func refreshChaptersCmd(ctx context.Context, st *store.Client, projectID int) tea.Cmd {
	return func() tea.Msg {
		listCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		chapters, err := st.ListChapters(listCtx, projectID)
		if err != nil {
			return chaptersErrMsg{err: err}
		}
		return chaptersMsg{chapters: chapters}
	}
}
