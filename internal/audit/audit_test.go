package audit

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLogger_LogAndEvents(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(dir)

	now := time.Now().Truncate(time.Millisecond)

	events := []Event{
		{Timestamp: now, Type: EventDeploy, Resource: "box1", Actor: "1", Details: "512MB RAM, 1 CPU, 5GB Disk"},
		{Timestamp: now.Add(time.Second), Type: EventStop, Resource: "box1", Actor: "42"},
		{Timestamp: now.Add(2 * time.Second), Type: EventStart, Resource: "box1", Actor: "42"},
		{Timestamp: now.Add(3 * time.Second), Type: EventDelete, Resource: "box1", Actor: "1"},
	}

	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	result, err := logger.Events("box1")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	if len(result) != len(events) {
		t.Fatalf("got %d events, want %d", len(result), len(events))
	}

	seen := map[string]bool{}
	for i, e := range result {
		if e.Type != events[i].Type {
			t.Errorf("event %d: type = %q, want %q", i, e.Type, events[i].Type)
		}
		if e.Actor != events[i].Actor {
			t.Errorf("event %d: actor = %q, want %q", i, e.Actor, events[i].Actor)
		}
		if e.Details != events[i].Details {
			t.Errorf("event %d: details = %q, want %q", i, e.Details, events[i].Details)
		}
		if _, err := uuid.Parse(e.ID); err != nil {
			t.Errorf("event %d: id %q is not a UUID", i, e.ID)
		}
		if seen[e.ID] {
			t.Errorf("event %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
	}
}

func TestLogger_EventsEmpty(t *testing.T) {
	logger := NewLogger(t.TempDir())

	result, err := logger.Events("nonexistent")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("got %d events, want 0", len(result))
	}
}

func TestLogger_LogEventDefaults(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "nested", "audit"))

	before := time.Now().UTC()
	if err := logger.LogEvent(EventRegenerate, "box1", "42", ""); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	result, err := logger.Events("box1")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("got %d events, want 1", len(result))
	}
	if result[0].Timestamp.Before(before.Add(-time.Second)) {
		t.Errorf("timestamp %v not set", result[0].Timestamp)
	}
	if result[0].ID == "" {
		t.Error("id not set")
	}
}

func TestLogger_SeparateResources(t *testing.T) {
	logger := NewLogger(t.TempDir())

	logger.LogEvent(EventDeploy, "box1", "1", "")
	logger.LogEvent(EventDeploy, "box2", "1", "")
	logger.LogEvent(EventStop, "box1", "1", "")

	e1, _ := logger.Events("box1")
	e2, _ := logger.Events("box2")
	if len(e1) != 2 || len(e2) != 1 {
		t.Errorf("box1 has %d events, box2 has %d; want 2 and 1", len(e1), len(e2))
	}
}

func TestLogger_Archive(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(dir)

	logger.LogEvent(EventDeploy, "box1", "42", "")
	logger.LogEvent(EventDelete, "box1", "1", "")
	logger.LogEvent(EventDeploy, "box10", "7", "")

	if err := logger.Archive("box1"); err != nil {
		t.Fatalf("Archive() error: %v", err)
	}
	if events, _ := logger.Events("box1"); len(events) != 0 {
		t.Errorf("live log still has %d events", len(events))
	}
	if events, _ := logger.Events("box10"); len(events) != 1 {
		t.Error("archiving box1 must not touch box10")
	}

	logger.LogEvent(EventDeploy, "box1", "99", "")
	live, _ := logger.Events("box1")
	if len(live) != 1 || live[0].Actor != "99" {
		t.Errorf("live events = %+v, want only the new deploy", live)
	}

	archived, err := logger.Archived("box1")
	if err != nil {
		t.Fatalf("Archived() error: %v", err)
	}
	if len(archived) != 2 || archived[0].Actor != "42" || archived[1].Type != EventDelete {
		t.Errorf("archived = %+v", archived)
	}
}

func TestLogger_ArchiveWithoutLog(t *testing.T) {
	logger := NewLogger(t.TempDir())

	if err := logger.Archive("ghost"); err != nil {
		t.Errorf("Archive() error = %v, want nil", err)
	}
	if archived, err := logger.Archived("ghost"); err != nil || len(archived) != 0 {
		t.Errorf("Archived() = %v, %v", archived, err)
	}
}

func TestLogger_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(dir)

	logger.LogEvent(EventDeploy, "box1", "1", "")

	f, err := os.OpenFile(filepath.Join(dir, "box1.jsonl"), os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{truncated\n\n")
	f.Close()

	logger.LogEvent(EventStop, "box1", "1", "")

	events, err := logger.Events("box1")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	logger := NewLogger(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := logger.LogEvent(EventStart, "box1", "1", ""); err != nil {
				t.Errorf("LogEvent failed: %v", err)
			}
		}()
	}
	wg.Wait()

	events, err := logger.Events("box1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 25 {
		t.Errorf("got %d events, want 25", len(events))
	}
}
