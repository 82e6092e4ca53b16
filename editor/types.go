package editor

// Suggestion is one candidate continuation. ID is the 1-based ordinal within
// its batch and is stable for the life of the batch.
type Suggestion struct {
	ID        int    `json:"id"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

type SuggestRequest struct {
	CurrentText    string `json:"current_text"`
	ChapterID      int    `json:"chapter_id,omitempty"`
	NumSuggestions int    `json:"num_suggestions"`
	ContextHint    string `json:"context_hint,omitempty"`
}

type suggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type saveLineRequest struct {
	ChapterID int    `json:"chapter_id"`
	Content   string `json:"content"`
}

// SaveResult echoes the chapter totals after a line was persisted.
type SaveResult struct {
	ChapterID int `json:"chapter_id"`
	LineCount int `json:"line_count"`
	WordCount int `json:"word_count"`
}

type Chapter struct {
	ID        int    `json:"id"`
	Order     int    `json:"order"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Status    string `json:"status"`
	WordCount int    `json:"word_count"`
}

type createChapterResponse struct {
	Message string  `json:"message"`
	Chapter Chapter `json:"chapter"`
}

// ChapterContent is the authoritative line sequence for one chapter.
type ChapterContent struct {
	ChapterID  int      `json:"chapter_id"`
	Title      string   `json:"chapter_title"`
	Lines      []string `json:"lines"`
	TotalWords int      `json:"total_words"`
}

type GenerationStatus struct {
	ProjectID      int     `json:"project_id"`
	Status         string  `json:"status"`
	Phase          string  `json:"phase"`
	CurrentChapter int     `json:"current_chapter"`
	TotalChapters  int     `json:"total_chapters"`
	TotalWords     int     `json:"total_words"`
	TokensUsed     int     `json:"tokens_used"`
	EstimatedCost  float64 `json:"estimated_cost"`
}
