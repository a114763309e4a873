package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestOrchestrationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *OrchestrationError
		expected string
	}{
		{
			name:     "type and message",
			err:      &OrchestrationError{Type: ErrorTypeInvalidRequest, Message: "prompt too short"},
			expected: "invalid_request: prompt too short",
		},
		{
			name:     "wrapped cause",
			err:      &OrchestrationError{Type: ErrorTypeAdapter, Message: "model adapter call failed", Err: errors.New("connection refused")},
			expected: "adapter: model adapter call failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOrchestrationError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *OrchestrationError
		expected int
	}{
		{"invalid request", ErrInvalidRequest("bad"), http.StatusBadRequest},
		{"no available model", ErrNoAvailableModel(TaskPlan), http.StatusServiceUnavailable},
		{"adapter failure", ErrAdapter(TaskCodegen, errors.New("timeout")), http.StatusBadGateway},
		{"storage failure", ErrStorage("save failed", errors.New("disk full")), http.StatusInternalServerError},
		{"not found", ErrNotFound("no such project"), http.StatusNotFound},
		{"conflict", ErrConflict("project not ready"), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestOrchestrationError_Unwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := ErrAdapter(TaskPlan, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	wrapped := fmt.Errorf("pipeline: %w", err)
	if !IsType(wrapped, ErrorTypeAdapter) {
		t.Error("IsType should classify through wrapping")
	}
	if IsType(wrapped, ErrorTypeStorage) {
		t.Error("IsType should not match a different category")
	}
}

func TestErrNoAvailableModel_CarriesTask(t *testing.T) {
	err := ErrNoAvailableModel(TaskAnalysis)
	if err.Task != TaskAnalysis {
		t.Errorf("Task = %q, want %q", err.Task, TaskAnalysis)
	}
}

func TestAsOrchestrationError(t *testing.T) {
	plain := errors.New("something broke")
	oe := AsOrchestrationError(plain)
	if oe.Type != ErrorTypeStorage {
		t.Errorf("unknown errors should map to %q, got %q", ErrorTypeStorage, oe.Type)
	}

	typed := ErrInvalidRequest("nope")
	if got := AsOrchestrationError(fmt.Errorf("wrap: %w", typed)); got.Type != ErrorTypeInvalidRequest {
		t.Errorf("typed error lost through wrapping: got %q", got.Type)
	}
}
