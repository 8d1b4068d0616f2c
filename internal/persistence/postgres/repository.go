// Package postgres provides Postgres-backed persistence for workouts and their outbox events.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gymplanner/internal/domain"
	"example.com/gymplanner/pkg/events"
)

// Option configures a Repository.
type Option func(*Repository)

// WithOutbox records a workout.created event for every insert, routed to topic.
func WithOutbox(topic string) Option {
	return func(r *Repository) {
		r.outboxTopic = topic
	}
}

// Repository provides Postgres-backed persistence for workouts.
type Repository struct {
	pool        *pgxpool.Pool
	outboxTopic string
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create persists the workout and, when enabled, its outbox event inside a single transaction.
func (r *Repository) Create(ctx context.Context, workout domain.Workout) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx,
		`INSERT INTO workouts (id, name, created_at) VALUES ($1, $2, $3)`,
		workout.ID, workout.Name, workout.CreatedAt,
	); err != nil {
		return err
	}

	if r.outboxTopic != "" {
		if err = r.insertOutbox(ctx, tx, workout); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, workout domain.Workout) error {
	body, err := json.Marshal(events.WorkoutCreated{
		WorkoutID: workout.ID,
		Name:      workout.Name,
		CreatedAt: workout.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", events.TypeWorkoutCreated, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5)`,
		workout.ID,
		events.TypeWorkoutCreated,
		r.outboxTopic,
		workout.ID,
		body,
	)
	return err
}

// List returns every workout, newest first.
func (r *Repository) List(ctx context.Context) ([]domain.Workout, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, name, created_at FROM workouts ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Workout, 0)
	for rows.Next() {
		var w domain.Workout
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.CreatedAt = w.CreatedAt.UTC()
		results = append(results, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Ping implements domain.Pinger.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
