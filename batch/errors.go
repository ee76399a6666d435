package batch

import (
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
)

var (
	// ErrDependencyNotFound is returned when a dependency id or index does not match any
	// submitted operation.
	ErrDependencyNotFound = errors.New("dependency not found")
	// ErrDependencyCycle is returned by cycle detection when dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle detected")

	ErrUnknownModule   = errors.New("unknown module")
	ErrUnknownMethod   = errors.New("unknown method")
	ErrMissingEndpoint = errors.New("endpoint is required for verb operations")
	ErrNoRequester     = errors.New("no requester configured for verb operations")
)

// DispatchError reports that an operation could not be routed to a collaborator: an
// unknown module or method, or a verb operation without an endpoint.
type DispatchError struct {
	OperationID string
	Err         error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch operation %s: %v", e.OperationID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// UpstreamError wraps an error returned by a handler or requester.
type UpstreamError struct {
	OperationID string
	Err         error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("operation %s: %v", e.OperationID, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ResultError is the serializable form of an error held by a Result.
type ResultError struct {
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ResultError) Error() string {
	return e.Message
}

// NewUnrecoverableError marks err as not worth retrying. Handlers and requesters return it
// to stop a retry policy early.
func NewUnrecoverableError(err error) error {
	return retry.Unrecoverable(err)
}
