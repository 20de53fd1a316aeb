package storage

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

type missingFieldError struct {
	field string
}

func (e *missingFieldError) Error() string {
	return e.field + " is required"
}

// MissingField names the first required attribute absent from the input.
func (e *missingFieldError) MissingField() string {
	return e.field
}

type notFoundError struct{}

func (*notFoundError) Error() string {
	return "task not found"
}

func (*notFoundError) NotFound() {}

type invalidIdentifierError struct {
	id string
}

func (e *invalidIdentifierError) Error() string {
	return "invalid task identifier: " + e.id
}

func (*invalidIdentifierError) InvalidIdentifier() {}

type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string {
	return "store unavailable: " + e.err.Error()
}

func (e *unavailableError) Unwrap() error {
	return e.err
}

// classify maps a table service failure to the accessor's error taxonomy.
// A 404 from the service means no entity matched; anything else is treated
// as a transient store failure the caller may retry.
func classify(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return &notFoundError{}
	}
	return &unavailableError{err: err}
}
