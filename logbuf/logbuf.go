// Package logbuf provides the bounded activity log shown to the author.
// It retains the most recent entries only; older ones are dropped in order.
package logbuf

import (
	"fmt"
	"sync"
	"time"
)

const DefaultLimit = 100

type Level string

const (
	LevelInfo  Level = "info"
	LevelOK    Level = "ok"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Entry struct {
	At    time.Time
	Level Level
	Text  string
}

type Buffer struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

func New(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Buffer{
		limit:   limit,
		entries: make([]Entry, 0, limit),
	}
}

func (b *Buffer) Append(level Level, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, Entry{At: time.Now(), Level: level, Text: text})
	if len(b.entries) > b.limit {
		b.entries = b.entries[len(b.entries)-b.limit:]
	}
}

func (b *Buffer) Appendf(level Level, format string, args ...any) {
	b.Append(level, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the retained entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
