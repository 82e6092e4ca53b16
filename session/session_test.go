package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/storyloom/storyloom/editor"
	"github.com/storyloom/storyloom/logbuf"
)

// stubClient scripts the remote surface per call. Functions receive the
// 1-based call number so tests can gate individual requests.
type stubClient struct {
	mu           sync.Mutex
	suggestCalls int
	saveCalls    []string
	createCalls  int

	suggestFn func(call int, req editor.SuggestRequest) ([]editor.Suggestion, error)
	saveFn    func(call int, chapterID int, content string) (editor.SaveResult, error)
	contentFn func(chapterID int) (editor.ChapterContent, error)
	createFn  func() (editor.Chapter, error)
}

func (c *stubClient) Suggest(ctx context.Context, req editor.SuggestRequest) ([]editor.Suggestion, error) {
	c.mu.Lock()
	c.suggestCalls++
	call := c.suggestCalls
	fn := c.suggestFn
	c.mu.Unlock()
	if fn == nil {
		return defaultBatch(), nil
	}
	return fn(call, req)
}

func (c *stubClient) SaveLine(ctx context.Context, chapterID int, content string) (editor.SaveResult, error) {
	c.mu.Lock()
	c.saveCalls = append(c.saveCalls, content)
	call := len(c.saveCalls)
	fn := c.saveFn
	c.mu.Unlock()
	if fn == nil {
		return editor.SaveResult{ChapterID: chapterID, LineCount: call, WordCount: call * 5}, nil
	}
	return fn(call, chapterID, content)
}

func (c *stubClient) ChapterContent(ctx context.Context, chapterID int) (editor.ChapterContent, error) {
	c.mu.Lock()
	fn := c.contentFn
	c.mu.Unlock()
	if fn == nil {
		return editor.ChapterContent{ChapterID: chapterID}, nil
	}
	return fn(chapterID)
}

func (c *stubClient) CreateDraftChapter(ctx context.Context) (editor.Chapter, error) {
	c.mu.Lock()
	c.createCalls++
	fn := c.createFn
	c.mu.Unlock()
	if fn == nil {
		return editor.Chapter{ID: 99, Order: 1, Title: "Chapter 1"}, nil
	}
	return fn()
}

func (c *stubClient) suggestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suggestCalls
}

func (c *stubClient) savedLines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.saveCalls))
	copy(out, c.saveCalls)
	return out
}

func defaultBatch() []editor.Suggestion {
	return []editor.Suggestion{
		{ID: 1, Content: "The door creaked open.", Reasoning: "continues the scene"},
		{ID: 2, Content: "Nobody answered the knock.", Reasoning: "raises tension"},
		{ID: 3, Content: "She counted to ten.", Reasoning: "slows the pace"},
	}
}

func chapterWithLines(lines ...string) func(int) (editor.ChapterContent, error) {
	return func(chapterID int) (editor.ChapterContent, error) {
		return editor.ChapterContent{
			ChapterID:  chapterID,
			Title:      "The Locked Door",
			Lines:      lines,
			TotalWords: len(lines) * 4,
		}, nil
	}
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func newTestSession(client Client) (*Session, *logbuf.Buffer) {
	logs := logbuf.New(50)
	s := New(client, logs, Config{SuggestCount: 3}, Hooks{})
	return s, logs
}

func logsContain(logs *logbuf.Buffer, want string) bool {
	for _, e := range logs.Entries() {
		if strings.Contains(e.Text, want) {
			return true
		}
	}
	return false
}

func TestSelectChapterLoadsContent(t *testing.T) {
	client := &stubClient{contentFn: chapterWithLines("First.", "Second.")}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4, Title: "stale title"})

	waitFor(t, "chapter content", func() bool { return len(s.Lines()) == 2 })
	if got := s.ChapterTitle(); got != "The Locked Door" {
		t.Fatalf("expected remote title, got %q", got)
	}
	if got := s.TotalWords(); got != 8 {
		t.Fatalf("expected 8 words, got %d", got)
	}
	if got := s.State(); got != StateIdle {
		t.Fatalf("expected idle after loading a non-empty chapter, got %v", got)
	}
	if got := client.suggestCount(); got != 0 {
		t.Fatalf("expected no suggest calls for a non-empty chapter, got %d", got)
	}
}

func TestSelectChapterEmptyStartsGenerating(t *testing.T) {
	client := &stubClient{contentFn: chapterWithLines()}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})

	waitFor(t, "ready state", func() bool { return s.State() == StateReady })
	if got := len(s.Suggestions()); got != 3 {
		t.Fatalf("expected 3 suggestions, got %d", got)
	}
	if got := client.suggestCount(); got != 1 {
		t.Fatalf("expected exactly 1 suggest call, got %d", got)
	}
}

func TestOverlappingSuggestLatestWins(t *testing.T) {
	gate := make(chan struct{})
	client := &stubClient{
		contentFn: chapterWithLines(),
		suggestFn: func(call int, req editor.SuggestRequest) ([]editor.Suggestion, error) {
			if call == 1 {
				<-gate
				return []editor.Suggestion{{ID: 1, Content: "stale"}}, nil
			}
			return []editor.Suggestion{{ID: 1, Content: "fresh"}}, nil
		},
	}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "first suggest in flight", func() bool { return client.suggestCount() == 1 })

	if err := s.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	waitFor(t, "fresh batch", func() bool {
		batch := s.Suggestions()
		return s.State() == StateReady && len(batch) == 1 && batch[0].Content == "fresh"
	})

	// Releasing the superseded request must not clobber the newer batch.
	close(gate)
	time.Sleep(50 * time.Millisecond)
	batch := s.Suggestions()
	if len(batch) != 1 || batch[0].Content != "fresh" {
		t.Fatalf("superseded response overwrote the batch: %+v", batch)
	}
}

func TestAcceptSuggestionCommitsAndRegenerates(t *testing.T) {
	client := &stubClient{contentFn: chapterWithLines("Opening line.")}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "chapter loaded", func() bool { return len(s.Lines()) == 1 })

	if err := s.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	waitFor(t, "batch ready", func() bool { return s.State() == StateReady })

	if err := s.AcceptSuggestion(context.Background(), 2); err != nil {
		t.Fatalf("AcceptSuggestion returned error: %v", err)
	}

	waitFor(t, "line committed", func() bool { return len(s.Lines()) == 2 })
	lines := s.Lines()
	if lines[1] != "Nobody answered the knock." {
		t.Fatalf("expected ordinal 2 content, got %q", lines[1])
	}

	saved := client.savedLines()
	if len(saved) != 1 || saved[0] != "Nobody answered the knock." {
		t.Fatalf("expected exactly one save of ordinal 2, got %v", saved)
	}

	// Zero regen delay regenerates immediately after the commit lands.
	waitFor(t, "auto regeneration", func() bool { return s.State() == StateReady })
	if got := client.suggestCount(); got != 2 {
		t.Fatalf("expected exactly 2 suggest calls (manual + post-commit), got %d", got)
	}
}

func TestAcceptSuggestionOrdinalOutOfRange(t *testing.T) {
	client := &stubClient{contentFn: chapterWithLines()}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "batch ready", func() bool { return s.State() == StateReady })

	if err := s.AcceptSuggestion(context.Background(), 0); !errors.Is(err, ErrNoSuggestion) {
		t.Fatalf("expected ErrNoSuggestion for ordinal 0, got %v", err)
	}
	if err := s.AcceptSuggestion(context.Background(), 4); !errors.Is(err, ErrNoSuggestion) {
		t.Fatalf("expected ErrNoSuggestion for ordinal past batch end, got %v", err)
	}
	if got := len(client.savedLines()); got != 0 {
		t.Fatalf("expected no save calls, got %d", got)
	}
}

func TestAcceptWhileCommittingReturnsBusy(t *testing.T) {
	gate := make(chan struct{})
	client := &stubClient{
		contentFn: chapterWithLines(),
		saveFn: func(call, chapterID int, content string) (editor.SaveResult, error) {
			<-gate
			return editor.SaveResult{ChapterID: chapterID, WordCount: 10}, nil
		},
	}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "batch ready", func() bool { return s.State() == StateReady })

	if err := s.AcceptSuggestion(context.Background(), 1); err != nil {
		t.Fatalf("first accept returned error: %v", err)
	}
	if err := s.AcceptSuggestion(context.Background(), 1); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while a commit is in flight, got %v", err)
	}

	close(gate)
	waitFor(t, "commit landed", func() bool { return len(s.Lines()) == 1 })
	if got := len(client.savedLines()); got != 1 {
		t.Fatalf("expected exactly one save, got %d", got)
	}
}

func TestFailedCommitRollsBack(t *testing.T) {
	client := &stubClient{
		contentFn: chapterWithLines("Opening line."),
		saveFn: func(call, chapterID int, content string) (editor.SaveResult, error) {
			return editor.SaveResult{}, errors.New("backend unavailable")
		},
	}
	s, logs := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "chapter loaded", func() bool { return len(s.Lines()) == 1 })

	if err := s.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	waitFor(t, "batch ready", func() bool { return s.State() == StateReady })
	before := s.Suggestions()

	if err := s.AcceptSuggestion(context.Background(), 1); err != nil {
		t.Fatalf("AcceptSuggestion returned error: %v", err)
	}
	waitFor(t, "rollback to ready", func() bool { return s.State() == StateReady })

	if got := len(s.Lines()); got != 1 {
		t.Fatalf("failed commit must not change the line sequence, got %d lines", got)
	}
	after := s.Suggestions()
	if len(after) != len(before) || after[0].Content != before[0].Content {
		t.Fatalf("failed commit must keep the batch intact: before %v, after %v", before, after)
	}
	if !logsContain(logs, "✗ Save failed") {
		t.Fatal("expected save failure log entry")
	}
	if got := client.suggestCount(); got != 1 {
		t.Fatalf("failed commit must not trigger regeneration, got %d suggest calls", got)
	}
}

func TestChapterSwitchDiscardsInflightCommit(t *testing.T) {
	gate := make(chan struct{})
	client := &stubClient{
		contentFn: func(chapterID int) (editor.ChapterContent, error) {
			if chapterID == 4 {
				return editor.ChapterContent{ChapterID: 4, Lines: []string{"A1"}, TotalWords: 1}, nil
			}
			return editor.ChapterContent{ChapterID: 5, Lines: []string{"B1"}, TotalWords: 1}, nil
		},
		saveFn: func(call, chapterID int, content string) (editor.SaveResult, error) {
			<-gate
			return editor.SaveResult{ChapterID: chapterID, WordCount: 50}, nil
		},
	}
	s, logs := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "chapter 4 loaded", func() bool {
		lines := s.Lines()
		return len(lines) == 1 && lines[0] == "A1"
	})

	if err := s.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	waitFor(t, "batch ready", func() bool { return s.State() == StateReady })
	if err := s.AcceptSuggestion(context.Background(), 1); err != nil {
		t.Fatalf("AcceptSuggestion returned error: %v", err)
	}

	s.SelectChapter(context.Background(), editor.Chapter{ID: 5})
	waitFor(t, "chapter 5 loaded", func() bool {
		lines := s.Lines()
		return len(lines) == 1 && lines[0] == "B1"
	})

	close(gate)
	time.Sleep(50 * time.Millisecond)

	lines := s.Lines()
	if len(lines) != 1 || lines[0] != "B1" {
		t.Fatalf("stale commit result leaked into the new chapter: %v", lines)
	}
	if logsContain(logs, "saved") {
		t.Fatal("stale commit must not log a save confirmation")
	}
}

func TestSuggestResolvingDuringCommitIsDiscarded(t *testing.T) {
	suggestGate := make(chan struct{})
	saveGate := make(chan struct{})
	client := &stubClient{
		contentFn: chapterWithLines(),
		suggestFn: func(call int, req editor.SuggestRequest) ([]editor.Suggestion, error) {
			if call == 1 {
				<-suggestGate
				return []editor.Suggestion{{ID: 1, Content: "stale"}}, nil
			}
			return defaultBatch(), nil
		},
		saveFn: func(call, chapterID int, content string) (editor.SaveResult, error) {
			<-saveGate
			return editor.SaveResult{ChapterID: chapterID, WordCount: 10}, nil
		},
	}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "suggest in flight", func() bool { return client.suggestCount() == 1 })

	// Manual commits are allowed while a batch is being generated.
	if err := s.SubmitManual(context.Background(), "Hello."); err != nil {
		t.Fatalf("SubmitManual returned error: %v", err)
	}
	if got := s.State(); got != StateCommitting {
		t.Fatalf("expected committing, got %v", got)
	}

	// The pre-commit suggestion resolves while the save is still out. It must
	// not surface a batch or change state; commits stay strictly serialized.
	close(suggestGate)
	time.Sleep(50 * time.Millisecond)

	if got := s.State(); got != StateCommitting {
		t.Fatalf("stale suggestion flipped the state to %v mid-commit", got)
	}
	if got := len(s.Suggestions()); got != 0 {
		t.Fatalf("stale suggestion surfaced a batch mid-commit: %d entries", got)
	}
	if err := s.AcceptSuggestion(context.Background(), 1); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while the save is unresolved, got %v", err)
	}
	if got := len(client.savedLines()); got != 1 {
		t.Fatalf("expected a single save in flight, got %d", got)
	}

	close(saveGate)
	waitFor(t, "commit landed", func() bool { return len(s.Lines()) == 1 })
	saved := client.savedLines()
	if len(saved) != 1 || saved[0] != "Hello." {
		t.Fatalf("expected exactly one save of the manual line, got %v", saved)
	}
}

func TestFailedCommitDuringGenerationRestartsSuggest(t *testing.T) {
	suggestGate := make(chan struct{})
	client := &stubClient{
		contentFn: chapterWithLines(),
		suggestFn: func(call int, req editor.SuggestRequest) ([]editor.Suggestion, error) {
			if call == 1 {
				<-suggestGate
				return []editor.Suggestion{{ID: 1, Content: "stale"}}, nil
			}
			return []editor.Suggestion{{ID: 1, Content: "fresh"}}, nil
		},
		saveFn: func(call, chapterID int, content string) (editor.SaveResult, error) {
			return editor.SaveResult{}, errors.New("backend unavailable")
		},
	}
	s, logs := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "suggest in flight", func() bool { return client.suggestCount() == 1 })

	if err := s.SubmitManual(context.Background(), "Hello."); err != nil {
		t.Fatalf("SubmitManual returned error: %v", err)
	}

	// The failed commit cannot restore the generating state: the request that
	// backed it was invalidated when the commit started. A fresh one runs.
	waitFor(t, "fresh batch after failed commit", func() bool {
		batch := s.Suggestions()
		return s.State() == StateReady && len(batch) == 1 && batch[0].Content == "fresh"
	})
	if !logsContain(logs, "✗ Save failed") {
		t.Fatal("expected save failure log entry")
	}

	close(suggestGate)
	time.Sleep(50 * time.Millisecond)
	batch := s.Suggestions()
	if len(batch) != 1 || batch[0].Content != "fresh" {
		t.Fatalf("invalidated response overwrote the batch: %+v", batch)
	}
}

func TestSubmitManualRejectsWhitespace(t *testing.T) {
	client := &stubClient{contentFn: chapterWithLines("Opening line.")}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "chapter loaded", func() bool { return len(s.Lines()) == 1 })

	if err := s.SubmitManual(context.Background(), "   \n\t "); !errors.Is(err, ErrEmptyLine) {
		t.Fatalf("expected ErrEmptyLine, got %v", err)
	}
	if got := len(client.savedLines()); got != 0 {
		t.Fatalf("whitespace input must not reach the network, got %d saves", got)
	}
}

func TestSubmitManualCommitsOnce(t *testing.T) {
	client := &stubClient{contentFn: chapterWithLines("Opening line.")}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "chapter loaded", func() bool { return len(s.Lines()) == 1 })

	if err := s.SubmitManual(context.Background(), "Hello."); err != nil {
		t.Fatalf("SubmitManual returned error: %v", err)
	}

	waitFor(t, "line committed", func() bool { return len(s.Lines()) == 2 })
	saved := client.savedLines()
	if len(saved) != 1 || saved[0] != "Hello." {
		t.Fatalf("expected exactly one save of %q, got %v", "Hello.", saved)
	}
}

func TestOperationsWithoutChapter(t *testing.T) {
	s, _ := newTestSession(&stubClient{})

	if err := s.Regenerate(context.Background()); !errors.Is(err, ErrNoChapter) {
		t.Fatalf("expected ErrNoChapter from Regenerate, got %v", err)
	}
	if err := s.AcceptSuggestion(context.Background(), 1); !errors.Is(err, ErrNoChapter) {
		t.Fatalf("expected ErrNoChapter from AcceptSuggestion, got %v", err)
	}
	if err := s.SubmitManual(context.Background(), "text"); !errors.Is(err, ErrNoChapter) {
		t.Fatalf("expected ErrNoChapter from SubmitManual, got %v", err)
	}
	if err := s.EnterManual(); !errors.Is(err, ErrNoChapter) {
		t.Fatalf("expected ErrNoChapter from EnterManual, got %v", err)
	}
}

func TestManualEntryFlag(t *testing.T) {
	client := &stubClient{contentFn: chapterWithLines("Opening line.")}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "chapter loaded", func() bool { return len(s.Lines()) == 1 })

	if err := s.EnterManual(); err != nil {
		t.Fatalf("EnterManual returned error: %v", err)
	}
	if !s.ManualEntry() {
		t.Fatal("expected manual entry flag set")
	}
	s.CancelManual()
	if s.ManualEntry() {
		t.Fatal("expected manual entry flag cleared")
	}
}

func TestRegenDelayDefersRegeneration(t *testing.T) {
	client := &stubClient{contentFn: chapterWithLines("Opening line.")}
	logs := logbuf.New(50)
	s := New(client, logs, Config{SuggestCount: 3, RegenDelay: 30 * time.Millisecond}, Hooks{})

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "chapter loaded", func() bool { return len(s.Lines()) == 1 })

	if err := s.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	waitFor(t, "batch ready", func() bool { return s.State() == StateReady })
	if err := s.AcceptSuggestion(context.Background(), 1); err != nil {
		t.Fatalf("AcceptSuggestion returned error: %v", err)
	}

	// Immediately after the commit the session idles; the follow-up batch
	// arrives only after the settling delay.
	waitFor(t, "idle after commit", func() bool { return s.State() == StateIdle })
	waitFor(t, "deferred regeneration", func() bool { return s.State() == StateReady })
	if got := client.suggestCount(); got != 2 {
		t.Fatalf("expected 2 suggest calls, got %d", got)
	}
}

func TestCloseDiscardsInflightSuggest(t *testing.T) {
	gate := make(chan struct{})
	client := &stubClient{
		contentFn: chapterWithLines(),
		suggestFn: func(call int, req editor.SuggestRequest) ([]editor.Suggestion, error) {
			<-gate
			return defaultBatch(), nil
		},
	}
	s, _ := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})
	waitFor(t, "suggest in flight", func() bool { return client.suggestCount() == 1 })

	s.Close()
	close(gate)
	time.Sleep(50 * time.Millisecond)

	if got := len(s.Suggestions()); got != 0 {
		t.Fatalf("expected no suggestions after Close, got %d", got)
	}
	if got := s.State(); got != StateIdle {
		t.Fatalf("expected idle after Close, got %v", got)
	}
}

func TestCreateDraftChapterSelectsIt(t *testing.T) {
	client := &stubClient{
		contentFn: chapterWithLines(),
		createFn: func() (editor.Chapter, error) {
			return editor.Chapter{ID: 21, Order: 2, Title: "Chapter 2"}, nil
		},
	}
	s, logs := newTestSession(client)

	s.CreateDraftChapter(context.Background())

	waitFor(t, "new chapter selected", func() bool {
		ch, ok := s.Chapter()
		return ok && ch.ID == 21
	})
	if !logsContain(logs, "✓ Created Chapter 2") {
		t.Fatal("expected creation log entry")
	}
}

func TestSuggestFailureReturnsToIdle(t *testing.T) {
	client := &stubClient{
		contentFn: chapterWithLines(),
		suggestFn: func(call int, req editor.SuggestRequest) ([]editor.Suggestion, error) {
			return nil, errors.New("backend unavailable")
		},
	}
	s, logs := newTestSession(client)

	s.SelectChapter(context.Background(), editor.Chapter{ID: 4})

	waitFor(t, "failure logged", func() bool { return logsContain(logs, "✗ Suggestions failed") })
	waitFor(t, "idle after failure", func() bool { return s.State() == StateIdle })
	if got := len(s.Suggestions()); got != 0 {
		t.Fatalf("expected empty batch after failure, got %d", got)
	}
}
