package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/segmentio/kafka-go"
)

// BreakerWriter stops calling the broker after repeated failures and lets a
// single probe through once the delay has passed.
type BreakerWriter struct {
	next MessageWriter
	cb   circuitbreaker.CircuitBreaker[any]
}

// NewBreakerWriter wraps next with a circuit breaker that opens after
// failureThreshold consecutive failures.
func NewBreakerWriter(next MessageWriter, failureThreshold uint, delay time.Duration) *BreakerWriter {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(failureThreshold).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "kafka",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			breakerState.Set(stateToFloat(e.NewState))
		}).
		Build()

	return &BreakerWriter{next: next, cb: cb}
}

// WriteMessages implements MessageWriter.
func (b *BreakerWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if !b.cb.TryAcquirePermit() {
		return fmt.Errorf("kafka writes suspended: %w", circuitbreaker.ErrOpen)
	}
	if err := b.next.WriteMessages(ctx, msgs...); err != nil {
		b.cb.RecordError(err)
		return err
	}
	b.cb.RecordSuccess()
	return nil
}

// State reports the current breaker state.
func (b *BreakerWriter) State() circuitbreaker.State {
	return b.cb.State()
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	default:
		return 2
	}
}
