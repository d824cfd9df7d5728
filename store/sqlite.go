package store

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string, capacity int) (*SQLiteStore, error) {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY under concurrent stops
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{sqlStore{db: db, capacity: capacity}}
	if err := s.createTables(context.Background(), []string{
		`CREATE TABLE IF NOT EXISTS stops (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			last_stop_ts INTEGER NOT NULL,
			created_at INTEGER DEFAULT (unixepoch())
		)`,
	}); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
