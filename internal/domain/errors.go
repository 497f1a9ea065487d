package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/qtc-mcp-server/pkg/qtc"
)

// ServiceError represents a standardized error response
type ServiceError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput       = "INVALID_INPUT"
	ErrUndefinedFormula   = "UNDEFINED_FORMULA"
	ErrUndefinedCriterion = "UNDEFINED_CRITERION"
	ErrQTMissing          = "QT_MISSING"
	ErrStorage            = "STORAGE_ERROR"
	ErrRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrNotFoundCode       = "NOT_FOUND"
)

// ErrNotFound is returned when an evaluation is not in the recent cache or the history store.
var ErrNotFound = errors.New("not found")

// ErrStorageUnavailable is returned when the history store is disabled or failing.
var ErrStorageUnavailable = errors.New("history storage unavailable")

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewServiceError creates a new ServiceError with timestamp
func NewServiceError(code, message, details, requestID string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ErrorCode classifies err into one of the error codes above.
func ErrorCode(err error) string {
	var svcErr *ServiceError
	var valErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &svcErr):
		return svcErr.Code
	case errors.As(err, &valErr):
		return ErrInvalidInput
	case errors.Is(err, qtc.ErrQTMissing):
		return ErrQTMissing
	case errors.Is(err, qtc.ErrUndefinedFormula):
		return ErrUndefinedFormula
	case errors.Is(err, qtc.ErrUndefinedCriterion):
		return ErrUndefinedCriterion
	case errors.Is(err, qtc.ErrInvalidRule):
		return ErrInvalidInput
	case errors.Is(err, ErrNotFound):
		return ErrNotFoundCode
	case errors.Is(err, ErrStorageUnavailable):
		return ErrStorage
	default:
		return ErrInternalServer
	}
}

// HTTPStatus maps an error code to the HTTP status it is reported with.
func HTTPStatus(code string) int {
	switch code {
	case ErrInvalidInput, ErrQTMissing:
		return http.StatusBadRequest
	case ErrUndefinedFormula, ErrUndefinedCriterion, ErrNotFoundCode:
		return http.StatusNotFound
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToServiceError converts any error into the response envelope.
func ToServiceError(err error, requestID string) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.RequestID == "" {
			svcErr.RequestID = requestID
		}
		return svcErr
	}
	code := ErrorCode(err)
	message := err.Error()
	if code == ErrInternalServer {
		message = "internal server error"
	}
	return NewServiceError(code, message, "", requestID)
}
