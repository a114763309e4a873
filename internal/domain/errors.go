package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the category of an orchestration error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates the request failed validation before
	// any routing decision was made.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeNoAvailableModel indicates the routing policy found no
	// eligible candidate. This is an operator configuration problem, not a
	// transient fault.
	ErrorTypeNoAvailableModel ErrorType = "no_available_model"

	// ErrorTypeAdapter indicates an external model call failed, including
	// timeouts.
	ErrorTypeAdapter ErrorType = "adapter"

	// ErrorTypeStorage indicates persistence failed.
	ErrorTypeStorage ErrorType = "storage"

	// ErrorTypeNotFound indicates a referenced entity does not exist.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict indicates the operation is not valid for the
	// entity's current lifecycle state.
	ErrorTypeConflict ErrorType = "conflict"
)

// OrchestrationError is the canonical typed error returned across component
// boundaries. All errors are surfaced to the immediate caller; none are
// silently swallowed.
type OrchestrationError struct {
	// Type is the error category.
	Type ErrorType `json:"type"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Param names the input field that caused the error, if applicable.
	Param string `json:"param,omitempty"`

	// Task is the task kind being routed when the error occurred, if any.
	Task TaskKind `json:"task,omitempty"`

	// Err is the wrapped cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode maps the error category to an HTTP status for the API layer.
func (e *OrchestrationError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeNoAvailableModel:
		return http.StatusServiceUnavailable
	case ErrorTypeAdapter:
		return http.StatusBadGateway
	case ErrorTypeStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WithParam sets the offending parameter name.
func (e *OrchestrationError) WithParam(param string) *OrchestrationError {
	e.Param = param
	return e
}

// WithTask sets the task kind being routed.
func (e *OrchestrationError) WithTask(task TaskKind) *OrchestrationError {
	e.Task = task
	return e
}

// Convenience constructors for the error taxonomy.

// ErrInvalidRequest creates a validation error.
func ErrInvalidRequest(message string) *OrchestrationError {
	return &OrchestrationError{Type: ErrorTypeInvalidRequest, Message: message}
}

// ErrNoAvailableModel creates a routing failure for the given task.
func ErrNoAvailableModel(task TaskKind) *OrchestrationError {
	return &OrchestrationError{
		Type:    ErrorTypeNoAvailableModel,
		Message: fmt.Sprintf("no available model for task %q", task),
		Task:    task,
	}
}

// ErrAdapter wraps a failed external model call.
func ErrAdapter(task TaskKind, cause error) *OrchestrationError {
	return &OrchestrationError{
		Type:    ErrorTypeAdapter,
		Message: "model adapter call failed",
		Task:    task,
		Err:     cause,
	}
}

// ErrStorage wraps a persistence failure.
func ErrStorage(message string, cause error) *OrchestrationError {
	return &OrchestrationError{Type: ErrorTypeStorage, Message: message, Err: cause}
}

// ErrNotFound creates a not-found error.
func ErrNotFound(message string) *OrchestrationError {
	return &OrchestrationError{Type: ErrorTypeNotFound, Message: message}
}

// ErrConflict creates a lifecycle-state conflict error.
func ErrConflict(message string) *OrchestrationError {
	return &OrchestrationError{Type: ErrorTypeConflict, Message: message}
}

// AsOrchestrationError extracts an OrchestrationError from an error chain,
// wrapping unknown errors as storage-agnostic server faults.
func AsOrchestrationError(err error) *OrchestrationError {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe
	}
	return &OrchestrationError{Type: ErrorTypeStorage, Message: err.Error(), Err: err}
}

// IsType reports whether err is an OrchestrationError of the given category.
func IsType(err error, t ErrorType) bool {
	var oe *OrchestrationError
	return errors.As(err, &oe) && oe.Type == t
}
