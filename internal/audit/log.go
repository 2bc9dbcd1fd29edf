// Package audit appends executed exchange commands and their responses to a
// plain text log.
package audit

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// TimestampLayout is the ISO-8601 form written at the start of each line.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// DefaultPath is the log file used when none is configured.
const DefaultPath = "exchange_log.txt"

// Log is an append-only file of "<timestamp>: <entry>" lines. It is safe for
// concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a Log writing to path. The file is created on first Append.
func New(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path, now: time.Now}
}

// Path returns the file the log appends to.
func (l *Log) Path() string {
	return l.path
}

// Append writes one entry stamped with the current time.
func (l *Log) Append(entry string) error {
	return l.AppendAt(l.now(), entry)
}

// AppendAt writes one entry stamped with t. The file is opened and closed on
// every call so a rotated or removed log is recreated.
func (l *Log) AppendAt(t time.Time, entry string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	line := fmt.Sprintf("%s: %s\n", t.Format(TimestampLayout), entry)
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}
	return nil
}
