package logging

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mockwire/mockwire/internal/errx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         TEXT NOT NULL,
	engine_id  TEXT NOT NULL,
	event_type TEXT NOT NULL,
	summary    TEXT NOT NULL,
	tags       TEXT,
	data       TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`

// SQLiteSink persists events to an SQLite database so sessions can be
// inspected after the fact with plain SQL. It implements Sink and is safe
// for concurrent use.
type SQLiteSink struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteSink opens (creating if needed) the database at path and
// ensures the events schema exists.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errx.Wrap(ErrOpenDatabase, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errx.Wrap(ErrOpenDatabase, err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write inserts the event as one row.
func (s *SQLiteSink) Write(event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO events (ts, engine_id, event_type, summary, tags, data) VALUES (?, ?, ?, ?, ?, ?)`,
		event.Timestamp.Format(time.RFC3339Nano),
		event.EngineID,
		event.EventType,
		event.Summary,
		strings.Join(event.Tags, ","),
		string(event.Data),
	)
	if err != nil {
		return errx.Wrap(ErrWriteEvent, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Close(); err != nil {
		return errx.Wrap(ErrCloseWriter, err)
	}
	return nil
}
