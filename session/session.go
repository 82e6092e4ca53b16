// Package session implements the interactive generation session: the
// turn-based loop that drafts a manuscript one line at a time against a
// remote authoritative copy. It is UI-independent; the presentation layer
// observes it through a change callback and renders from its accessors.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storyloom/storyloom/editor"
	"github.com/storyloom/storyloom/logbuf"
)

// Client is the remote surface the session drives. *editor.Client satisfies
// it; tests substitute stubs with gated responses.
type Client interface {
	Suggest(ctx context.Context, req editor.SuggestRequest) ([]editor.Suggestion, error)
	SaveLine(ctx context.Context, chapterID int, content string) (editor.SaveResult, error)
	ChapterContent(ctx context.Context, chapterID int) (editor.ChapterContent, error)
	CreateDraftChapter(ctx context.Context) (editor.Chapter, error)
}

type Config struct {
	// SuggestCount is the batch size requested per generation (1..5).
	SuggestCount int
	// ContextHint is forwarded with every suggest call when set.
	ContextHint string
	// RegenDelay is the settling delay between a successful commit and the
	// automatic regeneration that follows it. Zero regenerates immediately.
	RegenDelay time.Duration
}

type Hooks struct {
	// OnChange fires after any externally visible state change. It is called
	// without internal locks held.
	OnChange func()
}

type Session struct {
	id     string
	client Client
	logs   *logbuf.Buffer
	hooks  Hooks

	mu  sync.Mutex
	cfg Config

	chapter      *editor.Chapter
	chapterTitle string
	totalWords   int
	lines        []string
	suggestions  []editor.Suggestion
	state        State
	manualEntry  bool

	// epoch identifies the active chapter context. Any async result carrying
	// an older epoch is discarded wholesale.
	epoch int
	// suggestGen identifies the most recently issued suggestion request.
	// Only the matching response may mutate visible state.
	suggestGen int

	regenTimer *time.Timer
}

func New(client Client, logs *logbuf.Buffer, cfg Config, hooks Hooks) *Session {
	if cfg.SuggestCount < 1 || cfg.SuggestCount > 5 {
		cfg.SuggestCount = 3
	}
	if logs == nil {
		logs = logbuf.New(0)
	}
	return &Session{
		id:     uuid.NewString(),
		client: client,
		logs:   logs,
		hooks:  hooks,
		cfg:    cfg,
	}
}

func (s *Session) ID() string { return s.id }

// ApplyConfig updates the tunables live (config hot-reload).
func (s *Session) ApplyConfig(cfg Config) {
	if cfg.SuggestCount < 1 || cfg.SuggestCount > 5 {
		cfg.SuggestCount = 3
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// SelectChapter makes ch the active chapter context: any in-flight work for
// the previous chapter is abandoned, the line sequence is reloaded from the
// remote store, and suggestion generation restarts if the chapter is empty.
func (s *Session) SelectChapter(ctx context.Context, ch editor.Chapter) {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.stopRegenTimerLocked()
	chCopy := ch
	s.chapter = &chCopy
	s.chapterTitle = ch.Title
	s.totalWords = ch.WordCount
	s.lines = nil
	s.suggestions = nil
	s.state = StateIdle
	s.manualEntry = false
	s.mu.Unlock()
	s.notify()

	go s.loadChapter(ctx, epoch, ch.ID)
}

func (s *Session) loadChapter(ctx context.Context, epoch, chapterID int) {
	content, err := s.client.ChapterContent(ctx, chapterID)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.logs.Appendf(logbuf.LevelError, "✗ Failed to load chapter: %v", err)
		s.mu.Unlock()
		s.notify()
		return
	}

	s.lines = content.Lines
	if content.Title != "" {
		s.chapterTitle = content.Title
	}
	s.totalWords = content.TotalWords

	if len(s.lines) == 0 {
		s.startSuggestLocked(ctx)
		s.mu.Unlock()
		s.notify()
		return
	}
	s.mu.Unlock()
	s.notify()
}

// CreateDraftChapter creates an empty chapter via the project store and
// selects it once created.
func (s *Session) CreateDraftChapter(ctx context.Context) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	go func() {
		ch, err := s.client.CreateDraftChapter(ctx)

		s.mu.Lock()
		stale := epoch != s.epoch
		s.mu.Unlock()
		if stale {
			return
		}
		if err != nil {
			s.logs.Appendf(logbuf.LevelError, "✗ Failed to create chapter: %v", err)
			s.notify()
			return
		}
		s.logs.Appendf(logbuf.LevelOK, "✓ Created %s", ch.Title)
		s.SelectChapter(ctx, ch)
	}()
}

// Close abandons all in-flight work. Results arriving afterwards are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	s.epoch++
	s.suggestGen++
	s.stopRegenTimerLocked()
	s.state = StateIdle
	s.mu.Unlock()
}

func (s *Session) stopRegenTimerLocked() {
	if s.regenTimer != nil {
		s.regenTimer.Stop()
		s.regenTimer = nil
	}
}

func (s *Session) notify() {
	if s.hooks.OnChange != nil {
		s.hooks.OnChange()
	}
}

// ----- accessors (all return copies) -----

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Chapter() (editor.Chapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapter == nil {
		return editor.Chapter{}, false
	}
	return *s.chapter, true
}

func (s *Session) ChapterTitle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapterTitle
}

func (s *Session) TotalWords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalWords
}

func (s *Session) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Session) Suggestions() []editor.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]editor.Suggestion, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

func (s *Session) ManualEntry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manualEntry
}

// currentTextLocked is the manuscript so far, in the backend's own join
// format (save-line splits on blank lines).
func (s *Session) currentTextLocked() string {
	return strings.Join(s.lines, "\n\n")
}
