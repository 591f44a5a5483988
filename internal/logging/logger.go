package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	mainLogName  = "PortfolioLog.txt"
	traceLogName = "TraceLog_Server.txt"
	mailLogName  = "MailLog.txt"

	timeFormat = "2006-01-02 15:04:05.000"

	banner = "=============================="
)

// Logger handles all logging operations
type Logger struct {
	logPath   string
	logFile   *os.File
	traceFile *os.File
	console   io.Writer
	buffered  *bufio.Writer
	mu        sync.Mutex
	lineCount int
	maxLines  int
	maxAge    time.Duration
	now       func() time.Time
}

// Option configures a Logger
type Option func(*Logger)

// WithConsole mirrors every entry to w. Unless unbuffered is set the
// writes go through a buffer that is flushed on Close.
func WithConsole(w io.Writer, unbuffered bool) Option {
	return func(l *Logger) {
		if w == nil {
			return
		}
		if unbuffered {
			l.console = w
			return
		}
		l.buffered = bufio.NewWriter(w)
		l.console = l.buffered
	}
}

// WithMaxLines sets the rotation threshold
func WithMaxLines(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.maxLines = n
		}
	}
}

// NewLogger creates a new logger instance writing into logPath
func NewLogger(logPath string, opts ...Option) *Logger {
	// Ensure the log directory exists
	if err := os.MkdirAll(logPath, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating log directory: %v\n", err)
	}

	logger := &Logger{
		logPath:  logPath,
		maxLines: 600,
		maxAge:   40 * 24 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(logger)
	}

	var err error
	logger.logFile, err = openAppend(filepath.Join(logPath, mainLogName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
	}

	logger.Info(banner)
	logger.Info("Log started at %s", logger.now().Format("2006-01-02 15:04:05"))
	logger.Info(banner)

	return logger
}

// Discard returns a logger that writes nowhere, for tests
func Discard() *Logger {
	return &Logger{maxLines: 600, maxAge: 40 * 24 * time.Hour, now: time.Now}
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Close flushes the console buffer and closes all log files
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buffered != nil {
		l.buffered.Flush()
	}

	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}

	if l.traceFile != nil {
		l.traceFile.Close()
		l.traceFile = nil
	}
}

// EnableTrace enables trace logging to a separate file
func (l *Logger) EnableTrace() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.traceFile != nil || l.logPath == "" {
		return nil
	}

	var err error
	l.traceFile, err = openAppend(filepath.Join(l.logPath, traceLogName))
	if err != nil {
		return fmt.Errorf("error opening trace log file: %w", err)
	}

	return nil
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.log("WARNING", format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log("DEBUG", format, args...)
}

// Trace logs a trace message (only if trace is enabled)
func (l *Logger) Trace(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.traceFile == nil {
		return
	}

	io.WriteString(l.traceFile, l.entry("TRACE", format, args...))
}

// MailLog records a mail delivery attempt in MailLog.txt
func (l *Logger) MailLog(messageID, format string, args ...interface{}) {
	if l.logPath == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	mailFile, err := openAppend(filepath.Join(l.logPath, mailLogName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening mail log file: %v\n", err)
		return
	}
	defer mailFile.Close()

	io.WriteString(mailFile, l.entry(messageID, format, args...))
}

// entry formats one timestamped line tagged with level
func (l *Logger) entry(level, format string, args ...interface{}) string {
	return fmt.Sprintf("%s [%s] %s\n", l.now().Format(timeFormat), level, fmt.Sprintf(format, args...))
}

// log handles the actual logging with rotation
func (l *Logger) log(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	logEntry := l.entry(level, format, args...)

	if l.console != nil {
		io.WriteString(l.console, logEntry)
	}

	if l.logFile == nil {
		return
	}

	io.WriteString(l.logFile, logEntry)
	l.lineCount++

	if l.lineCount >= l.maxLines {
		l.rotateLog()
	}
}

// rotateLog moves the current files aside with a timestamp prefix and starts new ones
func (l *Logger) rotateLog() {
	if l.logFile == nil {
		return
	}

	stamp := l.now().Format("060102_150405")
	l.lineCount = 0

	var previous string
	var err error
	l.logFile, previous, err = l.rotateFile(l.logFile, mainLogName, stamp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rotating log file: %v\n", err)
		return
	}

	for _, line := range []string{banner, "Log rotated. Previous log: " + previous, banner} {
		io.WriteString(l.logFile, l.entry("INFO", "%s", line))
	}

	if l.traceFile != nil {
		l.traceFile, _, err = l.rotateFile(l.traceFile, traceLogName, stamp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rotating trace log file: %v\n", err)
		}
	}

	l.cleanupOldLogs()
}

// rotateFile closes f and renames it to <stamp>_<name>, then opens an empty
// file under name. When the rename fails the old file is reopened for append.
func (l *Logger) rotateFile(f *os.File, name, stamp string) (*os.File, string, error) {
	f.Close()

	current := filepath.Join(l.logPath, name)
	rotated := filepath.Join(l.logPath, stamp+"_"+name)

	if err := os.Rename(current, rotated); err != nil {
		reopened, reopenErr := openAppend(current)
		if reopenErr != nil {
			return nil, "", reopenErr
		}
		return reopened, "", err
	}

	fresh, err := os.OpenFile(current, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, rotated, err
	}
	return fresh, rotated, nil
}

// cleanupOldLogs removes files in the log folder not modified within maxAge
func (l *Logger) cleanupOldLogs() {
	cutoff := l.now().Add(-l.maxAge)

	entries, err := os.ReadDir(l.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading log directory: %v\n", err)
		return
	}

	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(l.logPath, e.Name())
		if err := os.Remove(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting old log file %s: %v\n", path, err)
		}
	}
}
