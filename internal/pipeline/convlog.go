package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogFileName is the per-destination conversion log.
const LogFileName = "conversion_log.txt"

// ConversionLog appends timestamped lines to conversion_log.txt. The file
// is opened per write so encoder output appended between lines keeps its
// place in the sequence.
type ConversionLog struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewConversionLog returns the log for destination dir. Nothing is written
// until the first line.
func NewConversionLog(dir string) *ConversionLog {
	return &ConversionLog{path: filepath.Join(dir, LogFileName), now: time.Now}
}

// Path returns the log file location.
func (l *ConversionLog) Path() string {
	return l.path
}

// Printf appends one formatted line. Write errors are returned but callers
// treat the log as best-effort.
func (l *ConversionLog) Printf(format string, args ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	line := fmt.Sprintf(format, args...)
	_, err = fmt.Fprintf(f, "[%s] %s\n", l.now().Format("2006-01-02 15:04:05"), line)
	return err
}
