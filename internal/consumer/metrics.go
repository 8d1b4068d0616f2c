package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of appending an event to workout_event_log.
const (
	outcomeInserted  = "inserted"
	outcomeDuplicate = "duplicate"
)

var (
	eventsHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "events_handled_total",
		Help:      "Workout events handled and committed, by event type.",
	}, []string{"event_type"})

	handlerRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "handler_retries_total",
		Help:      "Handler failures that caused the same workout event to be retried.",
	}, []string{"event_type"})

	undecodableMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "undecodable_messages_total",
		Help:      "Records skipped because they were not workout events.",
	})

	eventLogWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "event_log_writes_total",
		Help:      "workout_event_log appends, split into new rows and redeliveries ignored.",
	}, []string{"outcome"})

	deliveryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "event_delivery_latency_seconds",
		Help:      "Time between an event being published and being handled.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(eventsHandled, handlerRetries, undecodableMessages, eventLogWrites, deliveryLatency)
}

func observeHandled(msg Message, now time.Time) {
	eventsHandled.WithLabelValues(msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		deliveryLatency.Observe(now.Sub(msg.Timestamp).Seconds())
	}
}
