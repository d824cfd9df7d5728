package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sqlStore implements StopStore over database/sql for drivers that use '?'
// placeholders and report LastInsertId (SQLite and MySQL).
type sqlStore struct {
	db       *sql.DB
	capacity int
}

func (s *sqlStore) createTables(ctx context.Context, queries []string) error {
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) Push(ctx context.Context, ts int64) (Stop, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Stop{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO stops (last_stop_ts) VALUES (?)", ts)
	if err != nil {
		return Stop{}, fmt.Errorf("failed to insert stop: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Stop{}, fmt.Errorf("failed to read stop id: %w", err)
	}

	// Trim to capacity, keeping the newest rows
	if _, err := tx.ExecContext(ctx, "DELETE FROM stops WHERE id <= ?", id-int64(s.capacity)); err != nil {
		return Stop{}, fmt.Errorf("failed to trim stops: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Stop{}, fmt.Errorf("failed to commit stop: %w", err)
	}
	return Stop{ID: id, LastStopTs: ts}, nil
}

func (s *sqlStore) Last(ctx context.Context) (Stop, error) {
	var stop Stop
	err := s.db.QueryRowContext(ctx,
		"SELECT id, last_stop_ts FROM stops ORDER BY id DESC LIMIT 1",
	).Scan(&stop.ID, &stop.LastStopTs)
	if errors.Is(err, sql.ErrNoRows) {
		return Stop{}, ErrEmpty
	}
	return stop, err
}

func (s *sqlStore) List(ctx context.Context) ([]Stop, error) {
	return s.query(ctx, "SELECT id, last_stop_ts FROM stops ORDER BY id ASC")
}

func (s *sqlStore) Since(ctx context.Context, id int64) ([]Stop, error) {
	return s.query(ctx, "SELECT id, last_stop_ts FROM stops WHERE id > ? ORDER BY id ASC", id)
}

func (s *sqlStore) query(ctx context.Context, query string, args ...interface{}) ([]Stop, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stops := make([]Stop, 0, s.capacity)
	for rows.Next() {
		var stop Stop
		if err := rows.Scan(&stop.ID, &stop.LastStopTs); err != nil {
			return nil, err
		}
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}

func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
