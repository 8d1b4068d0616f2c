// Package outbox delivers workout events recorded in Postgres to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/segmentio/kafka-go"
)

// HeaderEventType carries the event type on every published record.
const HeaderEventType = "event_type"

// MessageWriter publishes records to the workout events topic.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type batchStore interface {
	ClaimPending(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, ids []int64) error
	Release(ctx context.Context, ids []int64) error
	RecordFailure(ctx context.Context, id int64, reason string) (parked bool, err error)
}

// Message represents a row fetched from outbox.
type Message struct {
	EventID      int64
	AggregateID  string
	EventType    string
	Topic        string
	PartitionKey string
	Payload      json.RawMessage
	Attempts     int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the clock used for ticks and record timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

// WithLogger overrides the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher drains the outbox table and delivers events to Kafka.
type Dispatcher struct {
	store            batchStore
	producer         MessageWriter
	clock            clockwork.Clock
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher over the given outbox store.
func NewDispatcher(store *Store, producer MessageWriter, pollInterval time.Duration, batchSize int, opts ...Option) *Dispatcher {
	return newDispatcher(store, producer, pollInterval, batchSize, opts...)
}

func newDispatcher(store batchStore, producer MessageWriter, pollInterval time.Duration, batchSize int, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:            store,
		producer:         producer,
		clock:            clockwork.NewRealClock(),
		logger:           slog.Default().With("component", "outbox"),
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the polling loop. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := d.clock.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("outbox dispatcher error", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

// Wait waits until dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	start := d.clock.Now()

	messages, err := d.store.ClaimPending(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	defer func() { batchDuration.Observe(d.clock.Since(start).Seconds()) }()

	results := d.deliver(ctx, buildRecords(messages, d.clock.Now().UTC()))
	return d.settle(ctx, messages, results)
}

// deliver writes the whole batch at once and returns one result per record.
// A batch failure without per-record detail is retried record by record so
// one undeliverable event cannot hold back the others.
func (d *Dispatcher) deliver(ctx context.Context, records []kafka.Message) []error {
	results := make([]error, len(records))
	err := d.producer.WriteMessages(ctx, records...)
	if err == nil {
		return results
	}

	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) && len(writeErrs) == len(records) {
		copy(results, writeErrs)
		return results
	}
	if len(records) == 1 || errors.Is(err, circuitbreaker.ErrOpen) || ctx.Err() != nil {
		for i := range results {
			results[i] = err
		}
		return results
	}

	for i, record := range records {
		results[i] = d.producer.WriteMessages(ctx, record)
	}
	return results
}

// settle applies delivery results to the outbox. Events that were not really
// attempted, because the breaker is open or the dispatcher is stopping, are
// released without spending an attempt.
func (d *Dispatcher) settle(ctx context.Context, messages []Message, results []error) error {
	storeCtx := context.WithoutCancel(ctx)

	var (
		published []int64
		released  []int64
		errs      []error
	)
	for i, msg := range messages {
		switch cause := results[i]; {
		case cause == nil:
			published = append(published, msg.EventID)
		case errors.Is(cause, circuitbreaker.ErrOpen), ctx.Err() != nil:
			released = append(released, msg.EventID)
		default:
			errs = append(errs, d.recordFailure(storeCtx, msg, cause))
		}
	}

	if len(published) > 0 {
		deliveredCounter.Add(float64(len(published)))
		errs = append(errs, d.store.MarkPublished(storeCtx, published))
	}
	if len(released) > 0 {
		d.logger.Warn("outbox delivery deferred", "events", len(released))
		errs = append(errs, d.store.Release(storeCtx, released))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) recordFailure(ctx context.Context, msg Message, cause error) error {
	parked, err := d.store.RecordFailure(ctx, msg.EventID, cause.Error())
	if err != nil {
		return err
	}
	if parked {
		parkedCounter.Inc()
		d.logger.Error("outbox event parked",
			"event_id", msg.EventID,
			"event_type", msg.EventType,
			"attempts", msg.Attempts+1,
			"error", cause,
		)
		return nil
	}
	failedCounter.Inc()
	d.logger.Warn("outbox delivery failure", "event_id", msg.EventID, "attempts", msg.Attempts+1, "error", cause)
	return nil
}

// buildRecords turns outbox rows into Kafka records in claim order.
func buildRecords(messages []Message, now time.Time) []kafka.Message {
	records := make([]kafka.Message, len(messages))
	for i, msg := range messages {
		records[i] = kafka.Message{
			Key:   []byte(msg.PartitionKey),
			Value: []byte(msg.Payload),
			Time:  now,
			Headers: []kafka.Header{
				{Key: HeaderEventType, Value: []byte(msg.EventType)},
			},
		}
	}
	return records
}
