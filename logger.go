package auraclient

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Logger receives structured debug output from the client. Keys and values
// alternate, slog style.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SimpleLogger is a minimal console logger for development use.
type SimpleLogger struct{}

// NewSimpleLogger returns a logger writing leveled lines to stderr.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{}
}

func (l *SimpleLogger) log(level, msg string, keysAndValues ...interface{}) {
	line := fmt.Sprintf("[%s] %s", level, msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		line += fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	fmt.Fprintln(os.Stderr, line)
}

func (l *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log("DEBUG", msg, keysAndValues...)
}

func (l *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log("INFO", msg, keysAndValues...)
}

func (l *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log("WARN", msg, keysAndValues...)
}

func (l *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log("ERROR", msg, keysAndValues...)
}

// DebugConfig selects which lifecycle events are logged and how correlation
// ids are generated.
type DebugConfig struct {
	Enabled          bool
	LogRequests      bool
	LogRetries       bool
	LogCircuit       bool
	LogQueue         bool
	LogDeduplication bool
	LogRateLimit     bool
	CorrelationIDGen func() string
}

// DefaultDebugConfig enables all event categories with uuid correlation ids.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:          false,
		LogRequests:      true,
		LogRetries:       true,
		LogCircuit:       true,
		LogQueue:         true,
		LogDeduplication: true,
		LogRateLimit:     true,
		CorrelationIDGen: uuid.NewString,
	}
}
