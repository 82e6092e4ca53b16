package cli

import (
	"bytes"
	"log"
	"strings"
	"sync"

	"github.com/storyloom/storyloom/logbuf"
)

// sessionLogForwarder redirects stdlib log output into the activity ledger
// so library warnings do not corrupt the alternate screen.
type sessionLogForwarder struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	logs *logbuf.Buffer
}

func (f *sessionLogForwarder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf.Write(p)
	for {
		line, err := f.buf.ReadString('\n')
		if err != nil {
			f.buf.WriteString(line)
			break
		}
		f.emit(line)
	}
	return len(p), nil
}

func (f *sessionLogForwarder) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emit(f.buf.String())
	f.buf.Reset()
}

func (f *sessionLogForwarder) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	level := logbuf.LevelInfo
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error"):
		level = logbuf.LevelError
	case strings.Contains(lower, "warn"):
		level = logbuf.LevelWarn
	}
	f.logs.Append(level, line)
}

func captureSessionUILogs(logs *logbuf.Buffer) func() {
	oldWriter := log.Writer()
	oldFlags := log.Flags()
	oldPrefix := log.Prefix()

	forwarder := &sessionLogForwarder{logs: logs}
	log.SetFlags(0)
	log.SetPrefix("")
	log.SetOutput(forwarder)

	return func() {
		forwarder.flush()
		log.SetOutput(oldWriter)
		log.SetFlags(oldFlags)
		log.SetPrefix(oldPrefix)
	}
}
