// Package audit provides a best-effort append-only error log.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-proxy-service/internal/observability/logging"
)

// Logger appends timestamped entries to a flat audit file. Writes are
// best-effort: an internal write error is logged locally and discarded so
// that auditing can never fail the request that triggered it.
type Logger struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
	now  func() time.Time
}

// New creates an audit logger writing to the given file path.
func New(path string) *Logger {
	return &Logger{
		path: path,
		log:  logging.WithComponent("audit"),
		now:  time.Now,
	}
}

// Record appends one timestamped line tagged with the client identity.
// Entries are write-once and never mutated.
func (l *Logger) Record(clientID, message string) {
	line := fmt.Sprintf("%s [%s] %s\n", l.now().Format("2006-01-02 15:04:05"), clientID, message)

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			l.log.Error().Err(err).Str("path", l.path).Msg("audit dir create failed")
			return
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.log.Error().Err(err).Str("path", l.path).Msg("audit open failed")
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		l.log.Error().Err(err).Str("path", l.path).Msg("audit write failed")
	}
}
