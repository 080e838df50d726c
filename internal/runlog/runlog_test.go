package runlog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// resetRunLog resets the singleton so each test gets a fresh DB.
func resetRunLog(t *testing.T) {
	t.Helper()
	engine.Init(engine.Config{DataDir: t.TempDir()})
	logDB = nil
	logErr = nil
	logOnce = sync.Once{}
}

func TestRecordAndRecent(t *testing.T) {
	resetRunLog(t)
	ctx := context.Background()

	id, err := Record(ctx, Entry{
		Kind:         KindSearch,
		Target:       "platform engineer",
		SessionID:    "sess-1",
		StepsTaken:   12,
		BrowserURL:   "https://app.example/live/1",
		RecordingURL: "https://app.example/rec/1",
		OK:           true,
		StartedAt:    time.Now(),
		DurationMS:   8250,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id <= 0 {
		t.Errorf("expected positive id, got %d", id)
	}

	entries, err := Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Kind != KindSearch || e.Target != "platform engineer" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if !e.OK || e.StepsTaken != 12 {
		t.Errorf("ok/steps mismatch: %+v", e)
	}
	if e.SessionID != "sess-1" {
		t.Errorf("session = %q", e.SessionID)
	}
}

func TestRecord_Failure(t *testing.T) {
	resetRunLog(t)
	ctx := context.Background()

	_, err := Record(ctx, Entry{
		Kind:      KindApply,
		Target:    "https://acme.example/jobs/1",
		OK:        false,
		Error:     "task failed: form rejected",
		StartedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if entries[0].OK {
		t.Error("expected failed entry")
	}
	if entries[0].Error == "" {
		t.Error("expected error text preserved")
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	resetRunLog(t)
	ctx := context.Background()

	for _, target := range []string{"first", "second", "third"} {
		if _, err := Record(ctx, Entry{Kind: KindSearch, Target: target, OK: true, StartedAt: time.Now()}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Target != "third" || entries[1].Target != "second" {
		t.Errorf("order wrong: %q, %q", entries[0].Target, entries[1].Target)
	}
}

func TestRecent_Empty(t *testing.T) {
	resetRunLog(t)
	entries, err := Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
