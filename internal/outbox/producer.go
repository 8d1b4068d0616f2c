package outbox

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWorkoutWriter returns a writer bound to the workout events topic. Records
// are hashed on their key, the workout id, so events of one workout share a
// partition.
func NewWorkoutWriter(brokers []string, topic string, batchTimeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: batchTimeout,
	}
}
