// Package contract defines the workout request and record shapes shared by the
// API service and its clients, together with the rules that decide which inputs
// are acceptable. It depends on neither side so both validate identically.
package contract

import (
	"encoding/json"
	"time"
)

// MaxNameLength is the longest workout name accepted, counted in UTF-16 code
// units (see NameLength).
const MaxNameLength = 120

// Messages reported for name violations.
const (
	MessageRequired     = "Required"
	MessageNameRequired = "Workout name is required"
	MessageNameTooLong  = "Workout name must be 120 characters or less"
)

// CreateWorkoutRequest is the body of POST /workouts.
type CreateWorkoutRequest struct {
	Name string `json:"name" jsonschema:"minLength=1,maxLength=120" jsonschema_description:"Display name of the workout."`
}

// Workout is a persisted workout as returned by the API.
type Workout struct {
	ID        string    `json:"id" jsonschema:"format=uuid"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// DecodeCreateWorkout parses a raw request body and validates it.
// Malformed JSON yields a *SyntaxError, rule violations a *ValidationError.
func DecodeCreateWorkout(body []byte) (CreateWorkoutRequest, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return CreateWorkoutRequest{}, &SyntaxError{Err: err}
	}
	return ParseCreateWorkout(raw)
}

// DecodeWorkout parses and checks a single workout record.
func DecodeWorkout(data []byte) (Workout, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Workout{}, &SyntaxError{Err: err}
	}
	return ParseWorkout(raw)
}

// DecodeWorkoutList parses and checks an array of workout records.
func DecodeWorkoutList(data []byte) ([]Workout, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SyntaxError{Err: err}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &ValidationError{Issues: []Issue{{Message: "Expected array, received " + typeName(raw)}}}
	}

	out := make([]Workout, 0, len(items))
	var issues []Issue
	for i, item := range items {
		w, err := ParseWorkout(item)
		if err != nil {
			issues = append(issues, prefixIssues(err, itoa(i))...)
			continue
		}
		out = append(out, w)
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return out, nil
}
