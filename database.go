package main

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database used for the analytics event log
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps writers from blocking the occasional reader
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			type       TEXT NOT NULL,
			user_id    TEXT,
			space_id   TEXT,
			meta       BLOB,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
		CREATE INDEX IF NOT EXISTS idx_events_space ON events(space_id);
	`)
	return err
}

// InsertEvents writes a batch of analytics events in one transaction
func (db *DB) InsertEvents(batch []AnalyticsEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO events (type, user_id, space_id, meta, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, evt := range batch {
		if _, err := stmt.Exec(evt.Type, evt.UserID, evt.SpaceID, evt.Meta, evt.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// EventCount returns the number of stored events (used by tests)
func (db *DB) EventCount() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// Close closes the underlying connection
func (db *DB) Close() error {
	return db.conn.Close()
}
