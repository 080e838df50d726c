// Package runlog keeps an audit trail of every computer-use task the bot
// executes. The tracker file records outcomes per job; the run log records
// what the automation actually did, including failed runs that never touched
// a tracker record.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// Entry is one recorded task execution.
type Entry struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	Target       string    `json:"target"`
	SessionID    string    `json:"session_id,omitempty"`
	StepsTaken   int       `json:"steps_taken"`
	BrowserURL   string    `json:"browser_url,omitempty"`
	RecordingURL string    `json:"recording_url,omitempty"`
	OK           bool      `json:"ok"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
}

// Task kinds.
const (
	KindSearch      = "search"
	KindApply       = "apply"
	KindAnalyze     = "analyze"
	KindStatusCheck = "status_check"
)

var (
	logDB   *sql.DB
	logOnce sync.Once
	logErr  error
)

// openDB opens (or creates) the run log database under the data dir.
func openDB() (*sql.DB, error) {
	logOnce.Do(func() {
		dir := engine.Cfg.DataDir
		if dir == "" {
			dir = "data"
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			logErr = fmt.Errorf("runlog: mkdir %s: %w", dir, err)
			return
		}
		dbPath := filepath.Join(dir, "runlog.db")
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			logErr = fmt.Errorf("runlog: open db: %w", err)
			return
		}
		db.SetMaxOpenConns(1) // SQLite: single writer
		if err := initSchema(db); err != nil {
			logErr = fmt.Errorf("runlog: init schema: %w", err)
			return
		}
		logDB = db
	})
	return logDB, logErr
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		kind          TEXT NOT NULL,
		target        TEXT NOT NULL,
		session_id    TEXT,
		steps_taken   INTEGER NOT NULL DEFAULT 0,
		browser_url   TEXT,
		recording_url TEXT,
		ok            INTEGER NOT NULL,
		error         TEXT,
		started_at    TEXT NOT NULL,
		duration_ms   INTEGER NOT NULL DEFAULT 0
	)`)
	return err
}

// Record appends one entry to the run log. Failures to write the audit
// trail are returned but should not abort the run.
func Record(_ context.Context, e Entry) (int64, error) {
	db, err := openDB()
	if err != nil {
		return 0, err
	}

	res, err := db.Exec(
		`INSERT INTO runs (kind, target, session_id, steps_taken, browser_url, recording_url, ok, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Target, e.SessionID, e.StepsTaken, e.BrowserURL, e.RecordingURL,
		boolToInt(e.OK), e.Error, e.StartedAt.UTC().Format(time.RFC3339), e.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("runlog: insert: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// Recent returns the most recent entries, newest first.
func Recent(_ context.Context, limit int) ([]Entry, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := db.Query(
		`SELECT id, kind, target, session_id, steps_taken, browser_url, recording_url, ok, error, started_at, duration_ms
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var session, browser, recording, errText sql.NullString
		var ok int
		var started string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Target, &session, &e.StepsTaken,
			&browser, &recording, &ok, &errText, &started, &e.DurationMS); err != nil {
			continue
		}
		e.SessionID = session.String
		e.BrowserURL = browser.String
		e.RecordingURL = recording.String
		e.OK = ok != 0
		e.Error = errText.String
		e.StartedAt, _ = time.Parse(time.RFC3339, started)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
