// Package runlog provides the per-invocation run log: one append-only file
// named by a timestamp, duplicating everything written to the console.
package runlog

import (
	"fmt"
	"io"
	"os"
	"time"
)

// =============================================================================
// Run Log
// =============================================================================

// Log is one invocation's log file plus a writer that tees to the console.
type Log struct {
	file *os.File
	out  io.Writer
}

// FileName builds the log name for a start time.
// Pattern: deploy_YYYYMMDD_HHMMSS.log
func FileName(start time.Time) string {
	return fmt.Sprintf("deploy_%s.log", start.Format("20060102_150405"))
}

// Open creates the log file in dir (the current directory when empty) and
// returns the log. The file is append-only for the process lifetime.
func Open(dir string, start time.Time) (*Log, error) {
	name := FileName(start)
	if dir != "" {
		name = dir + string(os.PathSeparator) + name
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", name, err)
	}

	return &Log{
		file: f,
		out:  io.MultiWriter(os.Stdout, f),
	}, nil
}

// Writer returns the destination for all output: console plus log file.
func (l *Log) Writer() io.Writer {
	return l.out
}

// Name returns the log file path.
func (l *Log) Name() string {
	return l.file.Name()
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	return l.file.Close()
}
