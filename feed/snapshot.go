package feed

// Snapshot is the latest progress state as reported by the backend. It is
// purely derived: each progress event replaces it wholesale, never merged
// with the previous one.
type Snapshot struct {
	Phase      string
	Chapter    int
	Beat       int
	TotalBeats int
	Message    string
}

func snapshotFromProgress(ev ProgressEvent) Snapshot {
	s := Snapshot{
		Phase:   ev.Phase,
		Chapter: ev.Chapter,
		Message: ev.Message,
	}
	if ev.Beat != nil {
		s.Beat = *ev.Beat
	}
	if ev.TotalBeats != nil {
		s.TotalBeats = *ev.TotalBeats
	}
	return s
}

// BeatRatio reports within-chapter progress. ok is false when the backend
// did not report beat counts, in which case no bar should be rendered.
func (s Snapshot) BeatRatio() (float64, bool) {
	if s.TotalBeats <= 0 || s.Beat <= 0 {
		return 0, false
	}
	ratio := float64(s.Beat) / float64(s.TotalBeats)
	if ratio > 1 {
		ratio = 1
	}
	return ratio, true
}

// StatusLine is the human-readable form logged for a progress event.
func (s Snapshot) StatusLine() string {
	if s.Message != "" {
		return s.Message
	}
	return s.Phase
}
