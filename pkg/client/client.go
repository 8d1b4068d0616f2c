// Package client is a typed Go client for the workout API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"example.com/gymplanner/pkg/contract"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3000"

// Error is returned for every failed call. StatusCode is zero when the request
// never produced an HTTP response or the response could not be decoded.
type Error struct {
	StatusCode int
	Message    string
	Issues     []contract.IssueDetail
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Timeouts are configured there.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to the workout API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client for baseURL, falling back to DefaultBaseURL when empty.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{baseURL: baseURL, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL reports the address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetWorkouts lists every workout, newest first.
func (c *Client) GetWorkouts(ctx context.Context) ([]contract.Workout, error) {
	body, err := c.do(ctx, http.MethodGet, "/workouts", nil)
	if err != nil {
		return nil, err
	}
	workouts, err := contract.DecodeWorkoutList(body)
	if err != nil {
		return nil, decodeFailure(err)
	}
	return workouts, nil
}

// CreateWorkout creates a workout and returns the persisted record.
func (c *Client) CreateWorkout(ctx context.Context, input contract.CreateWorkoutRequest) (*contract.Workout, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, &Error{Message: "Unable to encode request", Err: err}
	}
	body, err := c.do(ctx, http.MethodPost, "/workouts", payload)
	if err != nil {
		return nil, err
	}
	workout, err := contract.DecodeWorkout(body)
	if err != nil {
		return nil, decodeFailure(err)
	}
	return &workout, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("Invalid request: %v", err), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("Network request failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("Unable to read response: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp.StatusCode, body)
	}
	return body, nil
}

func responseError(status int, body []byte) *Error {
	e := &Error{StatusCode: status, Message: fmt.Sprintf("Request failed (%d)", status)}

	var apiErr contract.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return e
	}
	if apiErr.Message != "" {
		e.Message = apiErr.Message
	}
	e.Issues = apiErr.Issues
	return e
}

func decodeFailure(err error) *Error {
	var serr *contract.SyntaxError
	if errors.As(err, &serr) {
		return &Error{Message: "Response was not valid JSON", Err: err}
	}
	return &Error{Message: fmt.Sprintf("Unexpected response shape: %v", err), Err: err}
}
