package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/gymplanner/internal/domain"
	"example.com/gymplanner/internal/persistence/memory"
	"example.com/gymplanner/pkg/contract"
)

func newTestMux(t *testing.T, repo domain.WorkoutRepository, opts ...domain.Option) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(domain.NewService(repo, opts...)).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) contract.APIError {
	t.Helper()
	var body contract.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestCreateWorkoutReturnsPersistedRecord(t *testing.T) {
	mux := newTestMux(t, memory.NewRepository())
	requestTime := time.Now().UTC().Truncate(time.Millisecond)

	rec := do(t, mux, http.MethodPost, "/workouts", `{"name":"Push Day"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	created, err := contract.DecodeWorkout(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Push Day", created.Name)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.Before(requestTime), "createdAt %s earlier than request %s", created.CreatedAt, requestTime)
}

func TestCreateWorkoutRejectsEmptyName(t *testing.T) {
	mux := newTestMux(t, memory.NewRepository())

	rec := do(t, mux, http.MethodPost, "/workouts", `{"name":""}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeAPIError(t, rec)
	assert.Equal(t, 400, body.StatusCode)
	assert.Equal(t, "ValidationError", body.Error)
	assert.Equal(t, "Invalid request body", body.Message)
	require.NotEmpty(t, body.Issues)
	assert.Equal(t, contract.IssueDetail{Path: "name", Message: "Workout name is required"}, body.Issues[0])
}

func TestCreateWorkoutValidationMessages(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		path    string
		message string
	}{
		{name: "too long", body: `{"name":"` + strings.Repeat("A", 121) + `"}`, path: "name", message: "Workout name must be 120 characters or less"},
		{name: "missing", body: `{}`, path: "name", message: "Required"},
		{name: "null", body: `{"name":null}`, path: "name", message: "Expected string, received null"},
		{name: "astral too long", body: `{"name":"` + strings.Repeat("💪", 61) + `"}`, path: "name", message: "Workout name must be 120 characters or less"},
		{name: "wrong type", body: `{"name":42}`, path: "name", message: "Expected string, received number"},
		{name: "not an object", body: `["Push Day"]`, path: "", message: "Expected object, received array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestMux(t, memory.NewRepository()), http.MethodPost, "/workouts", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeAPIError(t, rec)
			require.Len(t, body.Issues, 1)
			assert.Equal(t, tt.path, body.Issues[0].Path)
			assert.Equal(t, tt.message, body.Issues[0].Message)
		})
	}
}

func TestCreateWorkoutRejectsMalformedJSON(t *testing.T) {
	repo := memory.NewRepository()
	rec := do(t, newTestMux(t, repo), http.MethodPost, "/workouts", `{"name":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeAPIError(t, rec)
	assert.Equal(t, "BadRequest", body.Error)
	assert.Equal(t, "Request body must be valid JSON", body.Message)
	assert.Empty(t, body.Issues)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateWorkoutRejectsOversizedBody(t *testing.T) {
	payload := `{"name":"x","padding":"` + strings.Repeat("p", int(MaxBodyBytes)) + `"}`
	rec := do(t, newTestMux(t, memory.NewRepository()), http.MethodPost, "/workouts", payload)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PayloadTooLarge", decodeAPIError(t, rec).Error)
}

func TestCreateWorkoutIgnoresUnknownFieldsAndKeepsWhitespace(t *testing.T) {
	rec := do(t, newTestMux(t, memory.NewRepository()), http.MethodPost, "/workouts", `{"name":"  Leg Day ","notes":"heavy"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "  Leg Day ", raw["name"])
	assert.NotContains(t, raw, "notes")
	assert.ElementsMatch(t, []string{"id", "name", "createdAt"}, keys(raw))
}

func TestListWorkoutsEmptyStore(t *testing.T) {
	rec := do(t, newTestMux(t, memory.NewRepository()), http.MethodGet, "/workouts", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListWorkoutsNewestFirst(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	mux := newTestMux(t, memory.NewRepository(), domain.WithClock(clock))

	require.Equal(t, http.StatusCreated, do(t, mux, http.MethodPost, "/workouts", `{"name":"Leg Day"}`).Code)
	clock.Advance(time.Second)
	require.Equal(t, http.StatusCreated, do(t, mux, http.MethodPost, "/workouts", `{"name":"Push Day"}`).Code)

	rec := do(t, mux, http.MethodGet, "/workouts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list, err := contract.DecodeWorkoutList(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Push Day", list[0].Name)
	assert.Equal(t, "Leg Day", list[1].Name)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
}

func TestDuplicateNamesAreAccepted(t *testing.T) {
	mux := newTestMux(t, memory.NewRepository())

	first := do(t, mux, http.MethodPost, "/workouts", `{"name":"Push Day"}`)
	second := do(t, mux, http.MethodPost, "/workouts", `{"name":"Push Day"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)

	list, err := contract.DecodeWorkoutList(do(t, mux, http.MethodGet, "/workouts", "").Body.Bytes())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotEqual(t, list[0].ID, list[1].ID)
}

func TestStorageFaultIsGeneric(t *testing.T) {
	repo := &failingRepo{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")}
	mux := newTestMux(t, repo)

	for _, rec := range []*httptest.ResponseRecorder{
		do(t, mux, http.MethodGet, "/workouts", ""),
		do(t, mux, http.MethodPost, "/workouts", `{"name":"Push Day"}`),
	} {
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeAPIError(t, rec)
		assert.Equal(t, contract.APIError{
			StatusCode: 500,
			Error:      "StorageFault",
			Message:    "Workout storage is unavailable",
		}, body)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	}
}

func TestValidationHappensBeforePersistence(t *testing.T) {
	repo := &failingRepo{err: errors.New("must not be called")}
	rec := do(t, newTestMux(t, repo), http.MethodPost, "/workouts", `{"name":""}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, repo.creates)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	mux := newTestMux(t, memory.NewRepository())

	rec := do(t, mux, http.MethodGet, "/exercises", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeAPIError(t, rec)
	assert.Equal(t, "NotFound", body.Error)
	assert.Equal(t, "Route GET:/exercises not found", body.Message)

	rec = do(t, mux, http.MethodDelete, "/workouts", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "MethodNotAllowed", decodeAPIError(t, rec).Error)
}

func TestHealth(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	mux := http.NewServeMux()
	NewHandler(domain.NewService(memory.NewRepository()), WithClock(clock)).RegisterRoutes(mux)

	rec := do(t, mux, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","timestamp":"2025-03-01T12:00:00.000Z"}`, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	rec := do(t, newTestMux(t, memory.NewRepository()), http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	rec = do(t, newTestMux(t, &failingRepo{err: errors.New("down")}), http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "StorageFault", decodeAPIError(t, rec).Error)
}

func TestSchemaEndpoints(t *testing.T) {
	mux := newTestMux(t, memory.NewRepository())

	rec := do(t, mux, http.MethodGet, "/schemas/create-workout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"name"}, schema["required"])

	rec = do(t, mux, http.MethodGet, "/schemas/workout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	assert.Contains(t, schema["properties"], "createdAt")
}

type failingRepo struct {
	err     error
	creates int
}

func (r *failingRepo) Create(context.Context, domain.Workout) error {
	r.creates++
	return r.err
}

func (r *failingRepo) List(context.Context) ([]domain.Workout, error) {
	return nil, r.err
}

func (r *failingRepo) Ping(context.Context) error {
	return r.err
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
