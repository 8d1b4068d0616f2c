package contract

import (
	"errors"
	"math"
	"strconv"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
)

// ParseCreateWorkout checks an untyped value, typically decoded JSON, against the
// create-workout shape. The name is validated exactly as supplied; no trimming.
func ParseCreateWorkout(v any) (CreateWorkoutRequest, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return CreateWorkoutRequest{}, &ValidationError{Issues: []Issue{
			{Message: "Expected object, received " + typeName(v)},
		}}
	}

	name, issue := stringField(obj, "name")
	if issue != nil {
		return CreateWorkoutRequest{}, &ValidationError{Issues: []Issue{*issue}}
	}

	req := CreateWorkoutRequest{Name: name}
	if err := req.Validate(); err != nil {
		return CreateWorkoutRequest{}, err
	}
	return req, nil
}

// Validate applies the name length rules to an already typed request.
func (r CreateWorkoutRequest) Validate() error {
	if issue := checkName(r.Name); issue != nil {
		return &ValidationError{Issues: []Issue{*issue}}
	}
	return nil
}

func checkName(name string) *Issue {
	switch n := NameLength(name); {
	case n < 1:
		return &Issue{Path: []string{"name"}, Message: MessageNameRequired}
	case n > MaxNameLength:
		return &Issue{Path: []string{"name"}, Message: MessageNameTooLong}
	}
	return nil
}

// NameLength reports the length of name in UTF-16 code units, the unit
// JavaScript clients count in. Characters outside the Basic Multilingual
// Plane count twice.
func NameLength(name string) int {
	return len(utf16.Encode([]rune(name)))
}

// ParseWorkout checks an untyped value against the workout record shape.
// createdAt may be an RFC 3339 string or a number of epoch milliseconds.
func ParseWorkout(v any) (Workout, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Workout{}, &ValidationError{Issues: []Issue{
			{Message: "Expected object, received " + typeName(v)},
		}}
	}

	var (
		w      Workout
		issues []Issue
	)

	id, issue := stringField(obj, "id")
	switch {
	case issue != nil:
		issues = append(issues, *issue)
	case !isUUID(id):
		issues = append(issues, Issue{Path: []string{"id"}, Message: "Invalid uuid"})
	default:
		w.ID = id
	}

	name, issue := stringField(obj, "name")
	if issue != nil {
		issues = append(issues, *issue)
	} else {
		w.Name = name
	}

	createdAt, issue := timeField(obj, "createdAt")
	if issue != nil {
		issues = append(issues, *issue)
	} else {
		w.CreatedAt = createdAt
	}

	if len(issues) > 0 {
		return Workout{}, &ValidationError{Issues: issues}
	}
	return w, nil
}

// Check verifies a typed record has the shape a client may rely on. Stores use
// it to refuse handing out rows they cannot vouch for.
func (w Workout) Check() error {
	var issues []Issue
	if !isUUID(w.ID) {
		issues = append(issues, Issue{Path: []string{"id"}, Message: "Invalid uuid"})
	}
	if w.CreatedAt.IsZero() {
		issues = append(issues, Issue{Path: []string{"createdAt"}, Message: "Invalid date"})
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func stringField(obj map[string]any, key string) (string, *Issue) {
	raw, ok := obj[key]
	if !ok {
		return "", &Issue{Path: []string{key}, Message: MessageRequired}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &Issue{Path: []string{key}, Message: "Expected string, received " + typeName(raw)}
	}
	return s, nil
}

// maxEpochMillis is the largest magnitude a JavaScript Date accepts.
const maxEpochMillis = 8.64e15

func timeField(obj map[string]any, key string) (time.Time, *Issue) {
	invalid := &Issue{Path: []string{key}, Message: "Invalid date"}
	switch raw := obj[key].(type) {
	case string:
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			if ts, err = time.Parse(time.DateOnly, raw); err != nil {
				return time.Time{}, invalid
			}
		}
		return ts.UTC(), nil
	case float64:
		if math.IsNaN(raw) || math.Abs(raw) > maxEpochMillis {
			return time.Time{}, invalid
		}
		return time.UnixMilli(int64(raw)).UTC(), nil
	case nil:
		if _, ok := obj[key]; !ok {
			return time.Time{}, &Issue{Path: []string{key}, Message: MessageRequired}
		}
	}
	return time.Time{}, invalid
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func prefixIssues(err error, segment string) []Issue {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return []Issue{{Path: []string{segment}, Message: err.Error()}}
	}
	out := make([]Issue, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		out = append(out, Issue{Path: append([]string{segment}, issue.Path...), Message: issue.Message})
	}
	return out
}

func itoa(i int) string { return strconv.Itoa(i) }
