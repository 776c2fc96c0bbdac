// Package utils holds the logging facade used across heapwalker.
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is the debug log level.
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level.
	LevelInfo
	// LevelWarn is the warning log level.
	LevelWarn
	// LevelError is the error log level.
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel parses a level name. The empty string means LevelInfo.
func ParseLogLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", name)
}

// Logger is the interface for logging. Messages are printf-style.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// DefaultLogger writes one line per message:
//
//	[2026-01-02 15:04:05.000] [INFO] session=ab12 snapshot=dumps/a.json Opened ...
//
// Fields are sorted by key and rendered once, when the child logger is made.
type DefaultLogger struct {
	mu     *sync.Mutex
	level  LogLevel
	output io.Writer
	now    func() time.Time

	fields map[string]interface{}
	prefix string
}

// NewDefaultLogger creates a DefaultLogger writing to output.
func NewDefaultLogger(level LogLevel, output io.Writer) *DefaultLogger {
	return &DefaultLogger{mu: &sync.Mutex{}, level: level, output: output, now: time.Now}
}

// NewFileLogger creates a logger that appends to logPath. The caller closes
// the returned file once logging is done.
func NewFileLogger(level LogLevel, logPath string) (*DefaultLogger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewDefaultLogger(level, file), file, nil
}

func (l *DefaultLogger) Debug(msg string, args ...interface{}) { l.write(LevelDebug, msg, args) }
func (l *DefaultLogger) Info(msg string, args ...interface{})  { l.write(LevelInfo, msg, args) }
func (l *DefaultLogger) Warn(msg string, args ...interface{})  { l.write(LevelWarn, msg, args) }
func (l *DefaultLogger) Error(msg string, args ...interface{}) { l.write(LevelError, msg, args) }

// WithField returns a child logger carrying one more field.
func (l *DefaultLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a child logger carrying extra fields. A child shares
// its parent's output and lock; later keys override earlier ones.
func (l *DefaultLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var prefix strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&prefix, " %s=%v", k, merged[k])
	}

	child := *l
	child.fields = merged
	child.prefix = prefix.String()
	return &child
}

func (l *DefaultLogger) write(level LogLevel, msg string, args []interface{}) {
	if level < l.level {
		return
	}
	line := fmt.Sprintf("[%s] [%s]%s %s\n",
		l.now().Format("2006-01-02 15:04:05.000"), level, l.prefix, fmt.Sprintf(msg, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.output, line)
}

// NullLogger discards everything.
type NullLogger struct{}

func (*NullLogger) Debug(string, ...interface{}) {}
func (*NullLogger) Info(string, ...interface{})  {}
func (*NullLogger) Warn(string, ...interface{})  {}
func (*NullLogger) Error(string, ...interface{}) {}

func (l *NullLogger) WithField(string, interface{}) Logger     { return l }
func (l *NullLogger) WithFields(map[string]interface{}) Logger { return l }

// OrNull returns logger, or a NullLogger when logger is nil.
func OrNull(logger Logger) Logger {
	if logger == nil {
		return &NullLogger{}
	}
	return logger
}
