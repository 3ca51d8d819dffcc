// Package logging provides the process-wide leveled logger. The level is
// stored atomically so it can be adjusted after flag and config parsing
// without synchronizing callers.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Log levels, lowest to most verbose.
const (
	None = iota
	Error
	Warning
	Info
	Debug
)

var currentLevel atomic.Int32

var logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

func init() {
	currentLevel.Store(Info)
}

// SetLevel sets the global level, clamped to [None, Debug].
func SetLevel(level int) {
	if level < None {
		level = None
	}
	if level > Debug {
		level = Debug
	}
	currentLevel.Store(int32(level))
}

// GetLevel returns the current global level.
func GetLevel() int {
	return int(currentLevel.Load())
}

// ParseLevel converts a level name (case-insensitive) to its constant.
// Invalid names return Info together with an error.
func ParseLevel(s string) (int, error) {
	switch strings.ToLower(s) {
	case "none":
		return None, nil
	case "error":
		return Error, nil
	case "warn", "warning":
		return Warning, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	}
	return Info, fmt.Errorf("invalid log level %q", s)
}

// SetupLogging sets the global level from a name, falling back to Info
// with a warning when the name is invalid. Returns the level applied.
func SetupLogging(s string) int {
	level, err := ParseLevel(s)
	if err != nil {
		Logf(Warning, "Invalid log level %q, defaulting to info.", s)
	}
	SetLevel(level)
	return level
}

// SetOutput redirects the logger, used by tests to capture output.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

var levelPrefixes = map[int]string{
	Error:   "[ERROR] ",
	Warning: "[WARN] ",
	Info:    "[INFO] ",
	Debug:   "[DEBUG] ",
}

// Logf logs a formatted message when level is enabled globally.
func Logf(level int, format string, v ...interface{}) {
	if int32(level) > currentLevel.Load() {
		return
	}
	prefix, ok := levelPrefixes[level]
	if !ok {
		prefix = "[UNKN] "
	}
	logger.Println(prefix + fmt.Sprintf(format, v...))
}
