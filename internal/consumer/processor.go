// Package consumer reads workout events from Kafka and hands them to a Handler.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/segmentio/kafka-go"

	"example.com/gymplanner/internal/outbox"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a record emitted by the outbox dispatcher.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	EventType string
	Key       string
	Payload   json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithClock overrides the clock used for retry backoff.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Processor) {
		p.clock = clock
	}
}

// WithRetryBackoff sets the first and the largest delay between handler
// retries of the same event.
func WithRetryBackoff(initial, maxDelay time.Duration) Option {
	return func(p *Processor) {
		p.initialBackoff = initial
		p.maxBackoff = maxDelay
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
// An event the handler rejects is retried until it succeeds or the context ends;
// later offsets are never committed past it.
type Processor struct {
	reader         Reader
	handler        Handler
	logger         *slog.Logger
	clock          clockwork.Clock
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:         reader,
		handler:        handler,
		logger:         slog.Default().With("component", "consumer"),
		clock:          clockwork.NewRealClock(),
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Warn("fetch error", "error", err)
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Warn("decode error",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", decodeErr)
			undecodableMessages.Inc()
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Warn("commit error after decode failure", "error", commitErr)
			}
			continue
		}

		if err := p.handle(ctx, event); err != nil {
			return err
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Warn("commit error", "error", commitErr)
		} else {
			observeHandled(event, p.clock.Now())
		}
	}
}

// handle calls the handler until it accepts the event, backing off
// exponentially between attempts. It only gives up when ctx is done.
func (p *Processor) handle(ctx context.Context, event Message) error {
	delay := p.initialBackoff
	for {
		err := p.handler.Handle(ctx, event)
		if err == nil {
			return nil
		}

		handlerRetries.WithLabelValues(event.EventType).Inc()
		p.logger.Error("handler error, retrying",
			"event_type", event.EventType,
			"key", event.Key,
			"offset", event.Offset,
			"retry_in", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(delay):
		}
		delay = min(delay*2, p.maxBackoff)
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) == 0 {
		return Message{}, errors.New("empty payload")
	}
	if !json.Valid(msg.Value) {
		return Message{}, fmt.Errorf("payload is not valid JSON (%d bytes)", len(msg.Value))
	}

	eventType, ok := headerValue(msg, outbox.HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		EventType: string(eventType),
		Key:       string(msg.Key),
		Payload:   json.RawMessage(append([]byte(nil), msg.Value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
