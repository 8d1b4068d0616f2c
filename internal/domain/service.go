// Package domain defines the business logic for the workout service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"example.com/gymplanner/internal/observability"
	"example.com/gymplanner/pkg/contract"
)

// ErrStorage marks failures of the persistence layer.
var ErrStorage = errors.New("workout storage failure")

// WorkoutRepository captures persistence operations.
type WorkoutRepository interface {
	Create(ctx context.Context, workout Workout) error
	// List returns every workout ordered by CreatedAt descending; ties newest insert first.
	List(ctx context.Context) ([]Workout, error)
}

// Pinger is implemented by repositories that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithIDGenerator overrides how workout identifiers are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// Service orchestrates workout workflows.
type Service struct {
	repo  WorkoutRepository
	clock clockwork.Clock
	newID func() string
}

// NewService constructs a Service.
func NewService(repo WorkoutRepository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		clock: clockwork.NewRealClock(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWorkout persists a new workout. Every call creates a record; identical
// names are not deduplicated.
func (s *Service) CreateWorkout(ctx context.Context, req contract.CreateWorkoutRequest) (*Workout, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	workout := Workout{
		ID:        s.newID(),
		Name:      req.Name,
		CreatedAt: s.clock.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.repo.Create(ctx, workout); err != nil {
		return nil, fmt.Errorf("%w: create: %w", ErrStorage, err)
	}

	observability.RecordWorkoutCreated(workout.CreatedAt)
	return &workout, nil
}

// ListWorkouts returns all workouts, newest first. Records the store hands back
// are checked before being trusted.
func (s *Service) ListWorkouts(ctx context.Context) ([]Workout, error) {
	workouts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStorage, err)
	}

	for _, w := range workouts {
		if err := contract.Workout(w).Check(); err != nil {
			return nil, fmt.Errorf("%w: malformed record %q: %w", ErrStorage, w.ID, err)
		}
	}

	if workouts == nil {
		workouts = []Workout{}
	}
	return workouts, nil
}

// Ping reports whether the underlying store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	p, ok := s.repo.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}
