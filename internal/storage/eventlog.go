package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventLog appends lines to a daily file named <prefix>_YYYY-MM-DD.log.
// When the UTC date changes the previous day's file is compressed.
type EventLog struct {
	outputDir string
	prefix    string
	file      *os.File
	date      string
	mu        sync.Mutex

	now func() time.Time
}

// NewEventLog creates a daily event log in outputDir
func NewEventLog(outputDir, prefix string) *EventLog {
	return &EventLog{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// Write appends one line, rotating first if the day has changed
func (l *EventLog) Write(line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.now().UTC().Format("2006-01-02")
	if l.file == nil || l.date != today {
		if err := l.rotate(today); err != nil {
			return err
		}
	}

	if len(line) > 0 && line[len(line)-1] == '\n' {
		_, err := l.file.Write(line)
		return err
	}

	// the caller owns line; copy before adding the newline
	buf := make([]byte, len(line)+1)
	copy(buf, line)
	buf[len(line)] = '\n'
	_, err := l.file.Write(buf)
	return err
}

// CurrentPath returns the path of the file being written
func (l *EventLog) CurrentPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.date == "" {
		return ""
	}
	return l.path(l.date)
}

// Close closes the current file
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *EventLog) path(date string) string {
	return filepath.Join(l.outputDir, fmt.Sprintf("%s_%s.log", l.prefix, date))
}

// rotate closes the current file, compresses it if it belongs to an
// earlier day and opens the file for date
func (l *EventLog) rotate(date string) error {
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("failed to close current file: %w", err)
		}
		l.file = nil

		if l.date != "" && l.date != date {
			if err := compressFile(l.path(l.date)); err != nil {
				fmt.Fprintf(os.Stderr, "failed to compress previous log: %v\n", err)
			}
		}
	}

	//nolint:gosec // path is controlled by application logic
	file, err := os.OpenFile(l.path(date), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	l.file = file
	l.date = date
	return nil
}

// compressFile gzips a file in place, removing the original
func compressFile(path string) error {
	//nolint:gosec // path is controlled by application logic
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := writeGzip(path+".gz", data); err != nil {
		return err
	}
	return os.Remove(path)
}
