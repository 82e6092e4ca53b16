package session

import "errors"

// State is the commit coordinator's position in the per-chapter turn loop.
type State int

const (
	// StateIdle: no suggestion batch and nothing in flight.
	StateIdle State = iota
	// StateGenerating: a suggestion request is outstanding.
	StateGenerating
	// StateReady: a suggestion batch is visible and selectable.
	StateReady
	// StateCommitting: a line commit is outstanding. Commits are strictly
	// serialized; no second commit may start in this state.
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateGenerating:
		return "generating"
	case StateReady:
		return "ready"
	case StateCommitting:
		return "committing"
	default:
		return "idle"
	}
}

var (
	// ErrNoChapter is returned for operations that require a selected chapter.
	ErrNoChapter = errors.New("session: no chapter selected")
	// ErrEmptyLine rejects whitespace-only manual input before any network call.
	ErrEmptyLine = errors.New("session: empty line")
	// ErrBusy is returned when a commit is already in flight.
	ErrBusy = errors.New("session: commit in flight")
	// ErrNoSuggestion is returned when the requested ordinal has no suggestion.
	ErrNoSuggestion = errors.New("session: no such suggestion")
)
