package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/qtc-mcp-server/pkg/qtc"
)

func TestServiceError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrInvalidInput,
			message:   "Invalid units",
			details:   "units must be sec or msec",
			requestID: "req-123",
		},
		{
			name:      "Storage error",
			code:      ErrStorage,
			message:   "History store unavailable",
			details:   "Unable to connect to PostgreSQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewServiceError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("age", "must not be negative", -1)

	if err.Field != "age" {
		t.Errorf("Expected field age, got %s", err.Field)
	}
	if err.Value != -1 {
		t.Errorf("Expected value -1, got %v", err.Value)
	}

	expectedError := "validation error for field 'age': must not be negative"
	if err.Error() != expectedError {
		t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", NewValidationError("units", "bad", "x"), ErrInvalidInput, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("calculate: %w", NewValidationError("units", "bad", "x")), ErrInvalidInput, http.StatusBadRequest},
		{"qt missing", qtc.ErrQTMissing, ErrQTMissing, http.StatusBadRequest},
		{"undefined formula", fmt.Errorf("%w: qtcX", qtc.ErrUndefinedFormula), ErrUndefinedFormula, http.StatusNotFound},
		{"undefined criterion", fmt.Errorf("%w: x", qtc.ErrUndefinedCriterion), ErrUndefinedCriterion, http.StatusNotFound},
		{"invalid rule", qtc.ErrInvalidRule, ErrInvalidInput, http.StatusBadRequest},
		{"not found", fmt.Errorf("evaluation abc: %w", ErrNotFound), ErrNotFoundCode, http.StatusNotFound},
		{"storage", ErrStorageUnavailable, ErrStorage, http.StatusServiceUnavailable},
		{"service error", NewServiceError(ErrRateLimit, "slow down", "", ""), ErrRateLimit, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := ErrorCode(tt.err)
			if code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, code)
			}
			if status := HTTPStatus(code); status != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, status)
			}
		})
	}

	if ErrorCode(nil) != "" {
		t.Errorf("Expected empty code for nil error")
	}
}

func TestToServiceError(t *testing.T) {
	svcErr := ToServiceError(fmt.Errorf("%w: qtcX", qtc.ErrUndefinedFormula), "req-1")
	if svcErr.Code != ErrUndefinedFormula {
		t.Errorf("Expected code %s, got %s", ErrUndefinedFormula, svcErr.Code)
	}
	if svcErr.RequestID != "req-1" {
		t.Errorf("Expected request ID req-1, got %s", svcErr.RequestID)
	}

	internal := ToServiceError(errors.New("db password leaked in message"), "req-2")
	if internal.Message != "internal server error" {
		t.Errorf("Internal errors must not expose their message, got %s", internal.Message)
	}
}
