package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads and updates the outbox rows of one topic in Postgres.
type Store struct {
	pool        *pgxpool.Pool
	topic       string
	maxAttempts int
	lease       time.Duration
}

// NewStore constructs a Store for topic. Rows are parked once they have failed
// maxAttempts times; a claim is honoured for lease before other dispatchers may
// take the row over.
func NewStore(pool *pgxpool.Pool, topic string, maxAttempts int, lease time.Duration) *Store {
	return &Store{pool: pool, topic: topic, maxAttempts: maxAttempts, lease: lease}
}

// ClaimPending locks up to limit deliverable rows, stamps claimed_at and returns them.
func (s *Store) ClaimPending(ctx context.Context, limit int) (messages []Message, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, `SELECT event_id, aggregate_id, event_type, topic, partition_key, payload, attempts
        FROM outbox
        WHERE published_at IS NULL
          AND topic = $1
          AND attempts < $2
          AND (claimed_at IS NULL OR claimed_at < NOW() - make_interval(secs => $3))
        ORDER BY event_id
        LIMIT $4
        FOR UPDATE SKIP LOCKED`, s.topic, s.maxAttempts, s.lease.Seconds(), limit)
	if err != nil {
		return nil, err
	}

	messages = make([]Message, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.EventID, &msg.AggregateID, &msg.EventType, &msg.Topic, &msg.PartitionKey, &msg.Payload, &msg.Attempts); err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, msg)
		ids = append(ids, msg.EventID)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		_ = tx.Rollback(ctx)
		return nil, nil
	}

	if _, err = tx.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() WHERE event_id = ANY($1)`, ids); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkPublished stamps published_at on the delivered rows.
func (s *Store) MarkPublished(ctx context.Context, ids []int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET published_at = NOW(), last_error = NULL WHERE event_id = ANY($1)`, ids)
	return err
}

// Release drops the claim on rows that were never attempted.
func (s *Store) Release(ctx context.Context, ids []int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET claimed_at = NULL WHERE event_id = ANY($1)`, ids)
	return err
}

// RecordFailure bumps the attempt count of one row. A row that has used up its
// attempts moves to outbox_parked, and parked reports true.
func (s *Store) RecordFailure(ctx context.Context, id int64, reason string) (parked bool, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var attempts int
	if err = tx.QueryRow(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = $2, claimed_at = NULL
         WHERE event_id = $1
         RETURNING attempts`, id, reason).Scan(&attempts); err != nil {
		return false, err
	}

	if attempts >= s.maxAttempts {
		if _, err = tx.Exec(ctx,
			`INSERT INTO outbox_parked (event_id, aggregate_id, event_type, topic, partition_key, payload, created_at, attempts, last_error)
             SELECT event_id, aggregate_id, event_type, topic, partition_key, payload, created_at, attempts, last_error
             FROM outbox WHERE event_id = $1`, id); err != nil {
			return false, err
		}
		if _, err = tx.Exec(ctx, `DELETE FROM outbox WHERE event_id = $1`, id); err != nil {
			return false, err
		}
		parked = true
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return parked, nil
}
