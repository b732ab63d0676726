package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Key constants for structured log fields.
const (
	KeyComponent  = "component"
	KeyCommand    = "command"
	KeyRequestID  = "requestId"
	KeyDurationMs = "durationMs"
	KeyError      = "error"
	KeyAddr       = "addr"
)

var (
	mu        sync.Mutex
	level     = log.InfoLevel
	formatter = log.TextFormatter
	output    io.Writer = os.Stderr
	loggers   = make(map[string]*log.Logger)
)

// Init configures every component logger, including ones handed out by L
// before Init ran.
// format: "json" or "text" (default "text")
// level: "debug", "info", "warn", "error" (default "info")
// w: writer to log to (nil = os.Stderr)
func Init(lvl, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(lvl)
	formatter = parseFormat(format)
	output = w

	for _, l := range loggers {
		l.SetOutput(output)
		l.SetLevel(level)
		l.SetFormatter(formatter)
	}
}

// L returns the logger tagged with the given component name.
func L(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[component]; ok {
		return l
	}
	l := log.NewWithOptions(output, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		Fields:          []interface{}{KeyComponent, component},
	})
	loggers[component] = l
	return l
}

// ParseLevel maps a level name to a log level, falling back to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func parseFormat(s string) log.Formatter {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return log.JSONFormatter
	}
	return log.TextFormatter
}
