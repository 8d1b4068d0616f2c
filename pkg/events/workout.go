// Package events defines the payloads published when workouts change.
package events

import "time"

// Event type names carried in the event_type header.
const (
	TypeWorkoutCreated = "workout.created"
)

// WorkoutCreated is emitted once a workout has been persisted.
type WorkoutCreated struct {
	WorkoutID string    `json:"workout_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
