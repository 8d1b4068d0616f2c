package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/gymplanner/internal/api"
	"example.com/gymplanner/internal/domain"
	"example.com/gymplanner/internal/persistence/memory"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.NewHandler(domain.NewService(memory.NewRepository())).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestListEmpty(t *testing.T) {
	srv := newAPI(t)

	code, out, _ := runCLI(t, "-api-url", srv.URL, "list")

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "No workouts yet. Create one!\n", out)
}

func TestCreateThenList(t *testing.T) {
	srv := newAPI(t)

	code, out, errOut := runCLI(t, "-api-url", srv.URL, "create", "  Leg", "Day  ")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, `Created "Leg Day"`)

	code, _, _ = runCLI(t, "-api-url", srv.URL, "create", "Push Day")
	require.Equal(t, exitOK, code)

	code, out, _ = runCLI(t, "-api-url", srv.URL, "list")
	require.Equal(t, exitOK, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "Push Day"))
	assert.True(t, strings.HasPrefix(lines[2], "Leg Day"))
}

func TestCreateShowsFirstValidationIssue(t *testing.T) {
	srv := newAPI(t)

	code, _, errOut := runCLI(t, "-api-url", srv.URL, "create", "   ")
	assert.Equal(t, exitValidation, code)
	assert.Equal(t, "Workout name is required\n", errOut)

	code, _, errOut = runCLI(t, "-api-url", srv.URL, "create", strings.Repeat("A", 121))
	assert.Equal(t, exitValidation, code)
	assert.Equal(t, "Workout name must be 120 characters or less\n", errOut)
}

func TestServerErrorsAreReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"statusCode":500,"error":"StorageFault","message":"Workout storage is unavailable"}`))
	}))
	t.Cleanup(srv.Close)

	code, _, errOut := runCLI(t, "-api-url", srv.URL, "list")
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, "Error: Workout storage is unavailable\n", errOut)

	code, _, errOut = runCLI(t, "-api-url", srv.URL, "create", "Push Day")
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, "Error: Workout storage is unavailable\n", errOut)
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "delete")
	assert.Equal(t, exitValidation, code)
	assert.Contains(t, errOut, `unknown command "delete"`)
}
