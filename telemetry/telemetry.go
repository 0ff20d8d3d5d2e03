// Package telemetry provides tracing for the HTTP server and event export for
// benchmark and shutdown results.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Exporter is the interface for event exporters.
type Exporter interface {
	// LogEvent records an event with the given name and data.
	LogEvent(name string, data map[string]interface{})
	// Flush sends any buffered data.
	Flush() error
	// Close flushes and releases the exporter.
	Close() error
}

// Event is one exported record.
type Event struct {
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func newEvent(name string, data map[string]interface{}) Event {
	return Event{Name: name, Timestamp: time.Now().UTC(), Data: data}
}

// NewExporter creates an exporter for protocol ("http", "file" or "noop").
func NewExporter(protocol, endpoint string) (Exporter, error) {
	switch protocol {
	case "http":
		return NewHTTPExporter(endpoint), nil
	case "file":
		return NewFileExporter(endpoint)
	case "noop", "":
		return NewNoopExporter(), nil
	default:
		return nil, fmt.Errorf("unknown telemetry protocol: %s", protocol)
	}
}

// ParseTarget splits "protocol:endpoint", e.g. "file:/tmp/bench.jsonl" or
// "http:http://collector:8080/events". An empty target is "noop".
func ParseTarget(target string) (protocol, endpoint string, err error) {
	if target == "" || target == "noop" {
		return "noop", "", nil
	}
	protocol, endpoint, ok := strings.Cut(target, ":")
	if !ok || endpoint == "" {
		return "", "", fmt.Errorf("invalid export target %q (want protocol:endpoint)", target)
	}
	return protocol, endpoint, nil
}

// --- HTTP Exporter ---

// BatchIDHeader identifies one posted batch so a collector can drop retries.
const BatchIDHeader = "X-Batch-ID"

// httpBatchSize is the number of buffered events that triggers a post.
const httpBatchSize = 100

// HTTPExporter posts buffered events as a JSON array. A failed post keeps
// the batch buffered for the next Flush.
type HTTPExporter struct {
	endpoint string
	client   *http.Client
	buffer   []Event
	batchID  string
	mu       sync.Mutex
}

// NewHTTPExporter creates a new HTTP exporter.
func NewHTTPExporter(endpoint string) *HTTPExporter {
	return &HTTPExporter{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		buffer: make([]Event, 0, httpBatchSize),
	}
}

func (e *HTTPExporter) LogEvent(name string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = append(e.buffer, newEvent(name, data))
	if len(e.buffer) >= httpBatchSize {
		e.flush()
	}
}

func (e *HTTPExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flush()
}

func (e *HTTPExporter) flush() error {
	if len(e.buffer) == 0 {
		return nil
	}

	data, err := json.Marshal(e.buffer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if e.batchID == "" {
		e.batchID = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(BatchIDHeader, e.batchID)

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telemetry endpoint returned %d", resp.StatusCode)
	}

	e.buffer = e.buffer[:0]
	e.batchID = ""
	return nil
}

func (e *HTTPExporter) Close() error {
	return e.Flush()
}

// --- File Exporter ---

// FileExporter appends events to a file, one JSON object per line. The
// first write error is kept and returned by Flush and Close.
type FileExporter struct {
	file *os.File
	err  error
	mu   sync.Mutex
}

// NewFileExporter creates a new file exporter.
func NewFileExporter(path string) (*FileExporter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry file: %w", err)
	}
	return &FileExporter{file: file}, nil
}

func (e *FileExporter) LogEvent(name string, data map[string]interface{}) {
	line, err := json.Marshal(newEvent(name, data))
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		_, err = e.file.Write(append(line, '\n'))
	}
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("write event %s: %w", name, err)
	}
}

func (e *FileExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	return e.file.Sync()
}

func (e *FileExporter) Close() error {
	flushErr := e.Flush()
	if err := e.file.Close(); err != nil {
		return err
	}
	return flushErr
}

// --- Noop Exporter ---

// NoopExporter discards all events.
type NoopExporter struct{}

// NewNoopExporter creates a new noop exporter.
func NewNoopExporter() *NoopExporter {
	return &NoopExporter{}
}

func (e *NoopExporter) LogEvent(name string, data map[string]interface{}) {}
func (e *NoopExporter) Flush() error                                      { return nil }
func (e *NoopExporter) Close() error                                      { return nil }
