package pixels

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for detailed debugging information
	LevelDebug LogLevel = iota
	// LevelInfo is for general informational messages
	LevelInfo
	// LevelWarn is for warning messages
	LevelWarn
	// LevelError is for error messages
	LevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger observes service events. It is optional: the service defaults to
// NopLogger and never writes anywhere on its own.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	// With returns a new logger with additional key-value pairs
	With(keyvals ...any) Logger
}

type defaultLogger struct {
	mu       *sync.Mutex
	writer   io.Writer
	minLevel LogLevel
	keyvals  []any
	now      func() time.Time
}

// NewLogger creates a logger that writes one line per message to writer.
func NewLogger(writer io.Writer, minLevel LogLevel) Logger {
	return &defaultLogger{
		mu:       &sync.Mutex{},
		writer:   writer,
		minLevel: minLevel,
		now:      time.Now,
	}
}

func (l *defaultLogger) Debug(msg string, keyvals ...any) { l.log(LevelDebug, msg, keyvals...) }
func (l *defaultLogger) Info(msg string, keyvals ...any)  { l.log(LevelInfo, msg, keyvals...) }
func (l *defaultLogger) Warn(msg string, keyvals ...any)  { l.log(LevelWarn, msg, keyvals...) }
func (l *defaultLogger) Error(msg string, keyvals ...any) { l.log(LevelError, msg, keyvals...) }

func (l *defaultLogger) With(keyvals ...any) Logger {
	merged := make([]any, 0, len(l.keyvals)+len(keyvals))
	merged = append(merged, l.keyvals...)
	merged = append(merged, keyvals...)
	return &defaultLogger{
		mu:       l.mu,
		writer:   l.writer,
		minLevel: l.minLevel,
		keyvals:  merged,
		now:      l.now,
	}
}

func (l *defaultLogger) log(level LogLevel, msg string, keyvals ...any) {
	if level < l.minLevel {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.writer, "%s [%s] %s", l.now().Format("2006-01-02 15:04:05.000"), level, msg)
	writeKeyvals(l.writer, l.keyvals)
	writeKeyvals(l.writer, keyvals)
	fmt.Fprintln(l.writer)
}

func writeKeyvals(w io.Writer, keyvals []any) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(w, " %v=%v", keyvals[i], keyvals[i+1])
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)   {}
func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Warn(string, ...any)    {}
func (nopLogger) Error(string, ...any)   {}
func (n nopLogger) With(...any) Logger { return n }

// NopLogger returns a logger that discards all messages.
func NopLogger() Logger {
	return nopLogger{}
}
