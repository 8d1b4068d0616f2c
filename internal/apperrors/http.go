package apperrors

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPErrorsTotal tracks error responses by kind.
var HTTPErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Total HTTP error responses by error kind.",
	},
	[]string{"kind"},
)

// Write converts err to its structured form, logs it and sends the JSON response.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	structured := AsStructuredError(err)
	if structured == nil {
		structured = Internal(nil)
	}

	HTTPErrorsTotal.WithLabelValues(string(structured.Kind)).Inc()
	logError(r, structured)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(structured.HTTPStatus())
	if encErr := json.NewEncoder(w).Encode(structured.ToResponse()); encErr != nil {
		slog.WarnContext(r.Context(), "failed to write error response", "error", encErr)
	}
}

func logError(r *http.Request, err *Error) {
	attrs := []any{
		"error_kind", err.Kind,
		"message", err.Message,
		"path", r.URL.Path,
		"method", r.Method,
		"status", err.HTTPStatus(),
	}

	ctx := r.Context()
	switch err.Kind {
	case KindValidation, KindBadRequest, KindPayloadTooLarge, KindNotFound, KindMethodNotAllowed:
		slog.InfoContext(ctx, "Client error", attrs...)
	case KindStorage:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Storage error", attrs...)
	default:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	}
}
