// Package audit is an optional sqlite-backed trail of coroutine lifecycle
// events and inter-coroutine messages: a database/sql facade keyed by
// connection, recording rows as timestamped events, narrowed to this
// module's one concern: letting an embedder inspect what an instance's
// coroutines did after the fact. Off by default; the root purc package
// only opens a Store when asked.
package audit

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a single sqlite connection recording coroutine events and
// dispatched messages, one row per occurrence.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite database at path and ensures its
// schema exists. path may be ":memory:" for a throwaway, process-local
// store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS coroutine_events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	coroutine_id INTEGER NOT NULL,
	event        TEXT NOT NULL,
	detail       TEXT NOT NULL DEFAULT '',
	recorded_at  DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS dispatched_messages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id   INTEGER NOT NULL,
	msg_type    TEXT NOT NULL,
	sub_type    TEXT NOT NULL DEFAULT '',
	matched     INTEGER NOT NULL,
	recorded_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coroutine_events_cid ON coroutine_events(coroutine_id);
CREATE INDEX IF NOT EXISTS idx_dispatched_messages_target ON dispatched_messages(target_id);
`

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordCoroutineEvent appends one lifecycle row (e.g. "spawned",
// "terminated", "exception") for coroutineID.
func (s *Store) RecordCoroutineEvent(coroutineID int, event, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO coroutine_events (coroutine_id, event, detail, recorded_at) VALUES (?, ?, ?, ?)`,
		coroutineID, event, detail, time.Now().UTC(),
	)
	return err
}

// RecordMessage appends one dispatched-message row; matched is how many
// observers the dispatch actually woke (Dispatch return).
func (s *Store) RecordMessage(targetID int, msgType, subType string, matched int) error {
	_, err := s.db.Exec(
		`INSERT INTO dispatched_messages (target_id, msg_type, sub_type, matched, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		targetID, msgType, subType, matched, time.Now().UTC(),
	)
	return err
}

// CoroutineEvent is one row read back by Events.
type CoroutineEvent struct {
	CoroutineID int
	Event       string
	Detail      string
	RecordedAt  time.Time
}

// Events returns every recorded event for coroutineID, oldest first.
func (s *Store) Events(coroutineID int) ([]CoroutineEvent, error) {
	rows, err := s.db.Query(
		`SELECT coroutine_id, event, detail, recorded_at FROM coroutine_events WHERE coroutine_id = ? ORDER BY id ASC`,
		coroutineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CoroutineEvent
	for rows.Next() {
		var e CoroutineEvent
		if err := rows.Scan(&e.CoroutineID, &e.Event, &e.Detail, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
