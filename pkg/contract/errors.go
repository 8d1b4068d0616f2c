package contract

import (
	"strings"
)

// Issue is a single validation violation.
type Issue struct {
	Path    []string
	Message string
}

// PathString joins the path segments with dots, the form used on the wire.
func (i Issue) PathString() string {
	return strings.Join(i.Path, ".")
}

// ValidationError reports every rule an input violated.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid input"
	}
	first := e.Issues[0]
	if p := first.PathString(); p != "" {
		return p + ": " + first.Message
	}
	return first.Message
}

// First returns the first reported issue; forms usually surface only that one.
func (e *ValidationError) First() Issue {
	if len(e.Issues) == 0 {
		return Issue{Message: "Invalid input"}
	}
	return e.Issues[0]
}

// Details flattens the issues into their wire form.
func (e *ValidationError) Details() []IssueDetail {
	out := make([]IssueDetail, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, IssueDetail{Path: issue.PathString(), Message: issue.Message})
	}
	return out
}

// SyntaxError wraps a body that is not valid JSON.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string { return "malformed JSON: " + e.Err.Error() }

func (e *SyntaxError) Unwrap() error { return e.Err }

// IssueDetail is the wire form of an Issue.
type IssueDetail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// APIError is the body of every non-2xx API response.
type APIError struct {
	StatusCode int           `json:"statusCode"`
	Error      string        `json:"error"`
	Message    string        `json:"message"`
	Issues     []IssueDetail `json:"issues,omitempty"`
}
