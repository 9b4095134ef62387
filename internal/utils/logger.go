package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level. Unknown
// names fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Fields are key/value pairs appended to a log line.
type Fields map[string]interface{}

// Logger is a leveled logger writing "LEVEL: msg key=value ..." lines.
type Logger struct {
	mu     *sync.Mutex
	file   *os.File
	logger *log.Logger
	level  Level
	fields Fields
}

// NewLogger creates a logger appending to filePath. An empty path logs to
// stderr.
func NewLogger(filePath string, level Level) (*Logger, error) {
	if filePath == "" {
		return NewWriterLogger(os.Stderr, level), nil
	}
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l := NewWriterLogger(file, level)
	l.file = file
	return l, nil
}

// NewWriterLogger creates a logger writing to w.
func NewWriterLogger(w io.Writer, level Level) *Logger {
	return &Logger{
		mu:     &sync.Mutex{},
		logger: log.New(w, "", log.LstdFlags),
		level:  level,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger(io.Discard, LevelError+1)
}

// With returns a child logger that always appends fields.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.fields = merged
	return &child
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Fields) { l.output(LevelDebug, msg, fields) }

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Fields) { l.output(LevelInfo, msg, fields) }

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Fields) { l.output(LevelWarn, msg, fields) }

// Error logs an error message
func (l *Logger) Error(msg string, fields ...Fields) { l.output(LevelError, msg, fields) }

func (l *Logger) output(level Level, msg string, extra []Fields) {
	if level < l.level {
		return
	}
	var b strings.Builder
	b.WriteString(levelNames[level])
	b.WriteString(": ")
	b.WriteString(msg)
	writeFields(&b, l.fields)
	for _, f := range extra {
		writeFields(&b, f)
	}
	l.mu.Lock()
	l.logger.Println(b.String())
	l.mu.Unlock()
}

func writeFields(b *strings.Builder, f Fields) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, f[k])
	}
}

// Close closes the log file
func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
	}
}

// RotateLog reopens the log file once a day until done is closed.
func (l *Logger) RotateLog(done <-chan struct{}) {
	if l.file == nil {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		l.mu.Lock()
		name := l.file.Name()
		l.file.Close()
		file, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			l.mu.Unlock()
			fmt.Fprintf(os.Stderr, "failed to rotate log file: %v\n", err)
			return
		}
		l.file = file
		l.logger.SetOutput(file)
		l.mu.Unlock()
	}
}
