// Package api exposes HTTP handlers for the workout service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"example.com/gymplanner/internal/apperrors"
	"example.com/gymplanner/internal/domain"
	"example.com/gymplanner/pkg/contract"
)

// MaxBodyBytes caps the size of a create request body.
const MaxBodyBytes int64 = 1 << 20

const readinessTimeout = 2 * time.Second

// Option configures a Handler.
type Option func(*Handler)

// WithClock overrides the clock used for health timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(h *Handler) {
		h.clock = clock
	}
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	clock   clockwork.Clock
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...Option) *Handler {
	h := &Handler{service: service, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/workouts", h.workouts)
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/health/ready", h.ready)
	mux.HandleFunc("/schemas/create-workout", schemaHandler(contract.CreateWorkoutJSONSchema))
	mux.HandleFunc("/schemas/workout", schemaHandler(contract.WorkoutJSONSchema))
	mux.HandleFunc("/", notFound)
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		methodNotAllowed(w, r)
	}
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := h.service.ListWorkouts(r.Context())
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	items := make([]contract.Workout, 0, len(workouts))
	for _, wo := range workouts {
		items = append(items, contract.Workout(wo))
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.Write(w, r, apperrors.PayloadTooLarge(MaxBodyBytes, err))
			return
		}
		apperrors.Write(w, r, apperrors.BadRequest("Unable to read request body", err))
		return
	}

	req, err := contract.DecodeCreateWorkout(body)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	workout, err := h.service.CreateWorkout(r.Context(), req)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "workout created", "workout_id", workout.ID)
	writeJSON(w, r, http.StatusCreated, contract.Workout(*workout))
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: h.clock.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		apperrors.Write(w, r, apperrors.Unavailable(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func schemaHandler[T any](build func() T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r)
			return
		}
		writeJSON(w, r, http.StatusOK, build())
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	apperrors.Write(w, r, apperrors.NotFound(fmt.Sprintf("Route %s:%s not found", r.Method, r.URL.Path)))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apperrors.Write(w, r, apperrors.MethodNotAllowed(fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path)))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.WarnContext(r.Context(), "failed to encode response", "error", err)
	}
}
