// Package audit provides structured event logging for resource lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per resource.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventDeploy     EventType = "deploy"
	EventStart      EventType = "start"
	EventStop       EventType = "stop"
	EventRestart    EventType = "restart"
	EventDelete     EventType = "delete"
	EventRegenerate EventType = "regenerate"
	EventReconcile  EventType = "reconcile"
	EventError      EventType = "error"
)

// Event represents a single audit log entry.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Resource  string    `json:"resource"`
	Actor     string    `json:"actor,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// ArchiveDir is the subdirectory holding the logs of deleted resources.
const ArchiveDir = "archive"

// Logger writes and reads audit events for resources.
// Events are stored in {dir}/{name}.jsonl. Archive moves a log to
// {dir}/archive/{name}.{time}.jsonl so a later resource of the same name
// starts with an empty history.
type Logger struct {
	dir string
	mu  sync.Mutex
}

// NewLogger creates a new audit logger rooted at dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir}
}

// Dir returns the directory holding the event logs.
func (l *Logger) Dir() string {
	return l.dir
}

// eventPath returns the path to the JSONL event log for a resource.
func (l *Logger) eventPath(resource string) string {
	return filepath.Join(l.dir, resource+".jsonl")
}

// Log appends an event to the resource's audit log, filling in the ID and
// timestamp when unset.
func (l *Logger) Log(event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(l.eventPath(event.Resource), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, resource, actor, details string) error {
	return l.Log(Event{
		Type:     eventType,
		Resource: resource,
		Actor:    actor,
		Details:  details,
	})
}

// Archive moves the resource's log out of the live set. A resource with
// no log is a no-op.
func (l *Logger) Archive(resource string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	src := l.eventPath(resource)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat audit log: %w", err)
	}

	archive := filepath.Join(l.dir, ArchiveDir)
	if err := os.MkdirAll(archive, 0o750); err != nil {
		return fmt.Errorf("failed to create audit archive directory: %w", err)
	}
	stamp := time.Now().UTC().Format("20060102T150405.000000000Z")
	if err := os.Rename(src, filepath.Join(archive, resource+"."+stamp+".jsonl")); err != nil {
		return fmt.Errorf("failed to archive audit log: %w", err)
	}
	return nil
}

// Archived reads the events of every archived log of a resource, oldest
// log first.
func (l *Logger) Archived(resource string) ([]Event, error) {
	paths, err := filepath.Glob(filepath.Join(l.dir, ArchiveDir, resource+".*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var events []Event
	for _, path := range paths {
		batch, err := readEvents(path)
		if err != nil {
			return events, err
		}
		events = append(events, batch...)
	}
	return events, nil
}

// Events reads all events for a resource in chronological order.
func (l *Logger) Events(resource string) ([]Event, error) {
	return readEvents(l.eventPath(resource))
}

func readEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}
