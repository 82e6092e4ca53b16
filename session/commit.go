package session

import (
	"context"
	"strings"
	"time"

	"github.com/storyloom/storyloom/logbuf"
)

// AcceptSuggestion commits the suggestion at the given 1-based ordinal of
// the current batch. The local line sequence is appended only after the
// remote store acknowledges the commit; on failure nothing changes and the
// batch stays intact.
func (s *Session) AcceptSuggestion(ctx context.Context, ordinal int) error {
	s.mu.Lock()
	if s.chapter == nil {
		s.mu.Unlock()
		return ErrNoChapter
	}
	if s.state == StateCommitting {
		s.mu.Unlock()
		return ErrBusy
	}
	if ordinal < 1 || ordinal > len(s.suggestions) {
		s.mu.Unlock()
		return ErrNoSuggestion
	}
	content := s.suggestions[ordinal-1].Content
	s.commitLocked(ctx, content)
	s.mu.Unlock()
	s.notify()
	return nil
}

// SubmitManual commits free text typed by the author. Whitespace-only input
// is rejected before any network call.
func (s *Session) SubmitManual(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyLine
	}

	s.mu.Lock()
	if s.chapter == nil {
		s.mu.Unlock()
		return ErrNoChapter
	}
	if s.state == StateCommitting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.manualEntry = false
	s.commitLocked(ctx, trimmed)
	s.mu.Unlock()
	s.notify()
	return nil
}

// EnterManual opens manual-entry mode. No-op while a commit is in flight.
func (s *Session) EnterManual() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapter == nil {
		return ErrNoChapter
	}
	if s.state == StateCommitting {
		return ErrBusy
	}
	s.manualEntry = true
	return nil
}

func (s *Session) CancelManual() {
	s.mu.Lock()
	s.manualEntry = false
	s.mu.Unlock()
	s.notify()
}

// commitLocked issues the commit request. The caller holds s.mu and has
// verified no other commit is in flight: commits are strictly serialized so
// remote line order can never diverge from local order.
func (s *Session) commitLocked(ctx context.Context, content string) {
	prevState := s.state
	s.state = StateCommitting
	// A suggestion request may still be in flight (manual commits are allowed
	// while generating). Its result was computed against the pre-commit text
	// and must not surface mid-commit, so invalidate it now.
	s.suggestGen++
	epoch := s.epoch
	chapterID := s.chapter.ID

	go func() {
		res, err := s.client.SaveLine(ctx, chapterID, content)

		s.mu.Lock()
		if epoch != s.epoch {
			// Chapter switched while the commit was in flight; the result
			// belongs to an abandoned context and must not touch the new one.
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.logs.Appendf(logbuf.LevelError, "✗ Save failed: %v", err)
			if prevState == StateGenerating {
				// The request that was pending before the commit has been
				// invalidated; restoring StateGenerating would wait forever,
				// so issue a fresh one.
				s.startSuggestLocked(ctx)
			} else {
				// Roll back to the pre-commit state with the batch untouched.
				s.state = prevState
			}
			s.mu.Unlock()
			s.notify()
			return
		}

		s.lines = append(s.lines, content)
		if res.WordCount > 0 {
			s.totalWords = res.WordCount
		}
		s.suggestions = nil
		s.state = StateIdle
		s.logs.Appendf(logbuf.LevelOK, "Line %d saved (%d words)", len(s.lines), s.totalWords)
		s.scheduleRegenLocked(ctx, epoch)
		s.mu.Unlock()
		s.notify()
	}()
}

// scheduleRegenLocked arranges exactly one suggestion regeneration after the
// configured settling delay. The caller holds s.mu.
func (s *Session) scheduleRegenLocked(ctx context.Context, epoch int) {
	delay := s.cfg.RegenDelay
	if delay <= 0 {
		s.startSuggestLocked(ctx)
		return
	}

	s.stopRegenTimerLocked()
	s.regenTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if epoch != s.epoch || s.state != StateIdle {
			s.mu.Unlock()
			return
		}
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		s.startSuggestLocked(ctx)
		s.mu.Unlock()
		s.notify()
	})
}
