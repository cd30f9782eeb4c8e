package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a level name to its Level. Unknown names fall back to
// INFO.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured JSON logging with optional redaction of
// device coordinates and credentials.
type Logger struct {
	level          Level
	mu             sync.Mutex
	redactLocation bool
}

var defaultLogger = &Logger{level: INFO, redactLocation: true}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.level = l }

// SetRedactLocation enables or disables coordinate redaction for the
// default logger. Credential fields are always masked.
func SetRedactLocation(r bool) { defaultLogger.redactLocation = r }

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	// Parse key-value pairs from fields
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		entry[key] = l.redactValue(key, val)
	}

	// JSON output
	data, _ := json.Marshal(entry)
	l.mu.Lock()
	fmt.Fprintln(os.Stderr, string(data))
	l.mu.Unlock()
}

var coordRegex = regexp.MustCompile(`-?\d{1,3}\.\d{3,}`)

func (l *Logger) redactValue(key, val string) string {
	key = strings.ToLower(key)
	// Credentials never reach the log stream.
	if strings.Contains(key, "api_key") || strings.Contains(key, "apikey") ||
		strings.Contains(key, "secret") || strings.Contains(key, "authorization") {
		return "***"
	}
	if !l.redactLocation {
		return val
	}
	// Redact coordinate fields
	if strings.Contains(key, "latitude") || strings.Contains(key, "longitude") ||
		strings.HasSuffix(key, "lat") || strings.HasSuffix(key, "lng") || strings.HasSuffix(key, "lon") {
		return RedactCoordinate(val)
	}
	// Redact coordinates embedded in location-shaped fields
	if strings.Contains(key, "location") || strings.Contains(key, "coord") {
		return coordRegex.ReplaceAllStringFunc(val, RedactCoordinate)
	}
	return val
}
