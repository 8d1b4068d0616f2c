// Package memory keeps workouts in process memory for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"example.com/gymplanner/internal/domain"
)

// Repository stores workouts in memory.
type Repository struct {
	mu       sync.RWMutex
	workouts []domain.Workout
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Create implements domain.WorkoutRepository.
func (r *Repository) Create(ctx context.Context, workout domain.Workout) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.workouts = append(r.workouts, workout)
	return nil
}

// List implements domain.WorkoutRepository.
func (r *Repository) List(ctx context.Context) ([]domain.Workout, error) {
	r.mu.RLock()
	out := make([]domain.Workout, len(r.workouts))
	for i, w := range r.workouts {
		out[len(out)-1-i] = w
	}
	r.mu.RUnlock()

	// Reversed insertion order keeps the newest insert first among equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Ping implements domain.Pinger.
func (r *Repository) Ping(ctx context.Context) error {
	return nil
}
