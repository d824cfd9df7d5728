package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements StopStore on a PostgreSQL table
type PostgresStore struct {
	pool     *pgxpool.Pool
	capacity int
}

// NewPostgresStore connects to PostgreSQL and creates the stops table
func NewPostgresStore(connectionString string, capacity int) (*PostgresStore, error) {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.MaxConns = 20
	config.MinConns = 1

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, capacity: capacity}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS stops (
		id BIGSERIAL PRIMARY KEY,
		last_stop_ts BIGINT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) Push(ctx context.Context, ts int64) (Stop, error) {
	stop := Stop{LastStopTs: ts}
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			"INSERT INTO stops (last_stop_ts) VALUES ($1) RETURNING id", ts,
		).Scan(&stop.ID); err != nil {
			return fmt.Errorf("failed to insert stop: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM stops WHERE id <= $1", stop.ID-int64(p.capacity)); err != nil {
			return fmt.Errorf("failed to trim stops: %w", err)
		}
		return nil
	})
	if err != nil {
		return Stop{}, err
	}
	return stop, nil
}

func (p *PostgresStore) Last(ctx context.Context) (Stop, error) {
	var stop Stop
	err := p.pool.QueryRow(ctx,
		"SELECT id, last_stop_ts FROM stops ORDER BY id DESC LIMIT 1",
	).Scan(&stop.ID, &stop.LastStopTs)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stop{}, ErrEmpty
	}
	return stop, err
}

func (p *PostgresStore) List(ctx context.Context) ([]Stop, error) {
	return p.query(ctx, "SELECT id, last_stop_ts FROM stops ORDER BY id ASC")
}

func (p *PostgresStore) Since(ctx context.Context, id int64) ([]Stop, error) {
	return p.query(ctx, "SELECT id, last_stop_ts FROM stops WHERE id > $1 ORDER BY id ASC", id)
}

func (p *PostgresStore) query(ctx context.Context, query string, args ...any) ([]Stop, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stops := make([]Stop, 0, p.capacity)
	for rows.Next() {
		var stop Stop
		if err := rows.Scan(&stop.ID, &stop.LastStopTs); err != nil {
			return nil, err
		}
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
