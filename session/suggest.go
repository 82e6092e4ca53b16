package session

import (
	"context"

	"github.com/storyloom/storyloom/editor"
	"github.com/storyloom/storyloom/logbuf"
)

// Regenerate discards the current suggestion batch and requests a fresh one.
// A response from a previously issued request is superseded and ignored.
func (s *Session) Regenerate(ctx context.Context) error {
	s.mu.Lock()
	if s.chapter == nil {
		s.mu.Unlock()
		return ErrNoChapter
	}
	if s.state == StateCommitting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.suggestions = nil
	s.startSuggestLocked(ctx)
	s.mu.Unlock()
	s.notify()
	return nil
}

// startSuggestLocked issues a suggestion request for the current position.
// The caller holds s.mu. Latest request wins: the generation counter is
// bumped here, and the response is applied only if it still matches.
func (s *Session) startSuggestLocked(ctx context.Context) {
	s.suggestGen++
	gen := s.suggestGen
	epoch := s.epoch
	s.state = StateGenerating

	req := editor.SuggestRequest{
		CurrentText:    s.currentTextLocked(),
		ChapterID:      s.chapter.ID,
		NumSuggestions: s.cfg.SuggestCount,
		ContextHint:    s.cfg.ContextHint,
	}

	go func() {
		batch, err := s.client.Suggest(ctx, req)

		s.mu.Lock()
		if epoch != s.epoch || gen != s.suggestGen {
			// Superseded by a newer request or a chapter switch.
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.logs.Appendf(logbuf.LevelError, "✗ Suggestions failed: %v", err)
			s.suggestions = nil
			s.state = StateIdle
			s.mu.Unlock()
			s.notify()
			return
		}
		s.suggestions = batch
		s.state = StateReady
		s.mu.Unlock()
		s.notify()
	}()
}
