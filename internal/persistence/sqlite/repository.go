// Package sqlite stores workouts in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/gymplanner/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS workouts (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL CHECK (length(name) BETWEEN 1 AND 120),
		created_at_us INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workouts_created_at ON workouts (created_at_us DESC)`,
}

// Repository provides SQLite-backed persistence for workouts.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and bootstraps the schema.
func Open(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute schema statement %d: %w", i+1, err)
		}
	}
	return &Repository{db: db}, nil
}

// Create implements domain.WorkoutRepository.
func (r *Repository) Create(ctx context.Context, workout domain.Workout) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workouts (id, name, created_at_us) VALUES (?, ?, ?)`,
		workout.ID, workout.Name, workout.CreatedAt.UnixMicro(),
	)
	return err
}

// List implements domain.WorkoutRepository.
func (r *Repository) List(ctx context.Context) ([]domain.Workout, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at_us FROM workouts ORDER BY created_at_us DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Workout, 0)
	for rows.Next() {
		var (
			w  domain.Workout
			us int64
		)
		if err := rows.Scan(&w.ID, &w.Name, &us); err != nil {
			return nil, err
		}
		w.CreatedAt = time.UnixMicro(us).UTC()
		results = append(results, w)
	}
	return results, rows.Err()
}

// Ping implements domain.Pinger.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}
