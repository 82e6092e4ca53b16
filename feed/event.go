package feed

import (
	"encoding/json"
	"fmt"
)

// Every inbound frame is a {"type": ..., "data": {...}} envelope. Each
// recognized type maps to one variant below; anything else becomes
// UnknownEvent so new server-side types degrade to a diagnostic log line
// instead of a dropped connection.

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Event interface {
	eventType() string
}

// ConnectedEvent is the server's acknowledgment right after accept.
type ConnectedEvent struct {
	ProjectID int `json:"project_id"`
}

// ProgressEvent replaces the progress snapshot wholesale. Beat and
// TotalBeats are optional; the server omits them outside beat-level work.
type ProgressEvent struct {
	Phase      string `json:"phase"`
	Chapter    int    `json:"chapter"`
	Beat       *int   `json:"beat"`
	TotalBeats *int   `json:"total_beats"`
	Message    string `json:"message"`
}

type ChapterCompleteEvent struct {
	Chapter   int `json:"chapter"`
	WordCount int `json:"word_count"`
}

type ErrorEvent struct {
	Error       string `json:"error"`
	Recoverable bool   `json:"recoverable"`
}

type CompleteEvent struct {
	TotalWords    int `json:"total_words"`
	TotalChapters int `json:"total_chapters"`
}

// HeartbeatEvent keeps the channel alive. It carries no payload and must
// never surface in the activity log.
type HeartbeatEvent struct{}

type UnknownEvent struct {
	Type string
}

func (ConnectedEvent) eventType() string       { return "connected" }
func (ProgressEvent) eventType() string        { return "progress" }
func (ChapterCompleteEvent) eventType() string { return "chapter_complete" }
func (ErrorEvent) eventType() string           { return "error" }
func (CompleteEvent) eventType() string        { return "complete" }
func (HeartbeatEvent) eventType() string       { return "heartbeat" }
func (e UnknownEvent) eventType() string       { return e.Type }

// ParseEvent decodes one inbound frame. A malformed envelope is an error;
// a well-formed envelope with an unrecognized type is an UnknownEvent.
func ParseEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed event: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("malformed event: missing type")
	}

	switch env.Type {
	case "connected":
		var ev ConnectedEvent
		if err := unmarshalData(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "progress":
		var ev ProgressEvent
		if err := unmarshalData(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "chapter_complete":
		var ev ChapterCompleteEvent
		if err := unmarshalData(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "error":
		var ev ErrorEvent
		if err := unmarshalData(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "complete":
		var ev CompleteEvent
		if err := unmarshalData(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "heartbeat", "pong":
		return HeartbeatEvent{}, nil
	default:
		return UnknownEvent{Type: env.Type}, nil
	}
}

func unmarshalData(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed event payload: %w", err)
	}
	return nil
}
