// Package logging provides levelled, component-scoped line logging for the
// server, the shutdown path and the benchmark runner.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel returns the Level named by s, case-insensitively.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if level == "" {
		return LevelInfo, nil
	}
	if level == "WARNING" {
		return LevelWarn, nil
	}
	if _, ok := levelPriority[level]; !ok {
		return "", fmt.Errorf("unknown log level: %s", s)
	}
	return level, nil
}

// Fields are key=value pairs appended to a log line.
type Fields map[string]interface{}

// sink is shared by a logger and every logger derived from it, so that
// SetOutput and SetLevel on the root affect all components.
type sink struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
}

// Logger writes one line per entry:
// LEVEL TIMESTAMP [component] message key=value ...
type Logger struct {
	sink      *sink
	component string
	requestID string
}

// New creates a Logger writing INFO and above to stderr.
func New() *Logger {
	return &Logger{
		sink: &sink{
			output:   os.Stderr,
			minLevel: LevelInfo,
		},
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	l := New()
	l.SetOutput(io.Discard)
	return l
}

// WithComponent returns a logger tagged with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		sink:      l.sink,
		component: component,
		requestID: l.requestID,
	}
}

// WithRequestID returns a logger that adds request_id to every line.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		sink:      l.sink,
		component: l.component,
		requestID: requestID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.minLevel = level
}

// SetOutput sets the output writer (default: stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.output = w
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level Level) bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return levelPriority[level] >= levelPriority[l.sink.minLevel]
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats fields as sorted key=value pairs.
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func (l *Logger) log(level Level, msg string, fields ...Fields) {
	if !l.Enabled(level) {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	merged := Fields{}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	if l.requestID != "" {
		merged["request_id"] = l.requestID
	}
	fieldStr := formatFields(merged)

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.output.Write([]byte(line))
}

// --- Event helpers ---

// ServerStart logs that the HTTP server is listening.
func (l *Logger) ServerStart(addr string) {
	l.Info("server_start", Fields{"addr": addr})
}

// ServerStop logs that the HTTP server has drained.
func (l *Logger) ServerStop(duration time.Duration, err error) {
	fields := Fields{"duration": duration.String()}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("server_stop", fields)
		return
	}
	l.Info("server_stop", fields)
}

// Request logs a completed HTTP request.
func (l *Logger) Request(method, path string, status int, duration time.Duration) {
	fields := Fields{
		"method":   method,
		"path":     path,
		"status":   status,
		"duration": duration.String(),
	}
	if status >= 500 {
		l.Error("request", fields)
		return
	}
	l.Debug("request", fields)
}

// ShutdownSignal logs which wait source ended the wait.
func (l *Logger) ShutdownSignal(trigger string) {
	l.Info("shutdown_signal", Fields{"trigger": trigger})
}

// ShutdownHandler logs the completion of one drain handler.
func (l *Logger) ShutdownHandler(name string, phase int, duration time.Duration, err error) {
	fields := Fields{
		"handler":  name,
		"phase":    phase,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("shutdown_handler", fields)
		return
	}
	l.Info("shutdown_handler", fields)
}

// BenchResult logs one benchmark measurement.
func (l *Logger) BenchResult(name string, iterations int, meanNs, stddevNs float64) {
	l.Debug("bench_result", Fields{
		"scenario":   name,
		"iterations": iterations,
		"mean_ns":    fmt.Sprintf("%.2f", meanNs),
		"stddev_ns":  fmt.Sprintf("%.2f", stddevNs),
	})
}
