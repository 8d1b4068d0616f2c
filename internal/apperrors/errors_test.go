package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/gymplanner/pkg/contract"
)

func TestValidationResponseShape(t *testing.T) {
	verr := &contract.ValidationError{Issues: []contract.Issue{
		{Path: []string{"name"}, Message: contract.MessageNameRequired},
	}}

	resp := Validation(verr).ToResponse()

	assert.Equal(t, contract.APIError{
		StatusCode: http.StatusBadRequest,
		Error:      "ValidationError",
		Message:    "Invalid request body",
		Issues:     []contract.IssueDetail{{Path: "name", Message: contract.MessageNameRequired}},
	}, resp)
}

func TestAsStructuredErrorMapsKnownErrors(t *testing.T) {
	verr := &contract.ValidationError{Issues: []contract.Issue{{Path: []string{"name"}, Message: "Required"}}}
	wrapped := fmt.Errorf("decode: %w", verr)
	assert.Equal(t, KindValidation, AsStructuredError(wrapped).Kind)

	serr := &contract.SyntaxError{Err: errors.New("unexpected EOF")}
	got := AsStructuredError(serr)
	assert.Equal(t, KindBadRequest, got.Kind)
	assert.Equal(t, http.StatusBadRequest, got.HTTPStatus())

	storage := StorageFault(errors.New("connection refused"))
	assert.Same(t, storage, AsStructuredError(fmt.Errorf("list: %w", storage)))

	assert.Nil(t, AsStructuredError(nil))
}

func TestUnknownErrorsBecomeInternal(t *testing.T) {
	cause := errors.New("boom")
	got := AsStructuredError(cause)

	require.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus())
	assert.ErrorIs(t, got, cause)
	assert.NotContains(t, got.ToResponse().Message, "boom")
}

func TestStatusDefaultsTo500(t *testing.T) {
	e := &Error{Kind: "Custom", Message: "x"}
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
	assert.Equal(t, 500, e.ToResponse().StatusCode)
}

func TestStorageFaultDoesNotLeakCause(t *testing.T) {
	resp := StorageFault(errors.New("dial tcp 10.0.0.5:5432: connection refused")).ToResponse()
	assert.Equal(t, "StorageFault", resp.Error)
	assert.NotContains(t, resp.Message, "10.0.0.5")
}
