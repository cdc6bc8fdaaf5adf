package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeNotFound represents a dataset, table or stored document that does not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConflict represents a concurrent modification detected through an ETag
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeValidation represents malformed records or arguments
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents invalid configuration
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypePermission represents permission/access errors
	ErrorTypePermission ErrorType = "permission"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeInterruption represents user interruption
	ErrorTypeInterruption ErrorType = "interruption"
	// ErrorTypeTransient represents adapter failures unrelated to the kinds above
	ErrorTypeTransient ErrorType = "transient"
)

// AppError represents an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewNotFoundError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, cause)
}

func NewConflictError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConflict, message, cause)
}

func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeValidation, message, cause)
}

func NewConfigurationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, cause)
}

// ErrorClassifier maps errors returned by the Google Cloud clients onto ErrorType
type ErrorClassifier struct{}

// NewErrorClassifier creates a new error classifier
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// ClassifyError analyzes an error and returns an AppError with appropriate classification
func (ec *ErrorClassifier) ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if apiErr := ec.classifyGoogleAPIError(err); apiErr != nil {
		return apiErr
	}

	if grpcErr := ec.classifyGRPCError(err); grpcErr != nil {
		return grpcErr
	}

	if ctxErr := ec.classifyContextError(err); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewAppError(ErrorTypeTimeout, "Network operation timed out", err)
	}

	return NewAppError(ErrorTypeTransient, "Unexpected adapter failure", err)
}

// classifyGoogleAPIError handles REST errors from the BigQuery and Storage clients.
// BigQuery answers 400 "Invalid dataset ID" / "Invalid table ID" for malformed ids
// that cannot exist, which is treated the same as 404.
func (ec *ErrorClassifier) classifyGoogleAPIError(err error) *AppError {
	var gapiErr *googleapi.Error
	if !errors.As(err, &gapiErr) {
		return nil
	}

	switch gapiErr.Code {
	case http.StatusNotFound:
		return NewNotFoundError("Resource not found", err).WithContext("http_status", gapiErr.Code)
	case http.StatusBadRequest:
		if isInvalidIDError(gapiErr) {
			return NewNotFoundError("Resource id is invalid", err).WithContext("http_status", gapiErr.Code)
		}
		return NewAppError(ErrorTypeValidation, "Request rejected", err).WithContext("http_status", gapiErr.Code)
	case http.StatusForbidden, http.StatusUnauthorized:
		return NewAppError(ErrorTypePermission, "Access denied", err).WithContext("http_status", gapiErr.Code)
	case http.StatusPreconditionFailed:
		return NewConflictError("Resource was modified concurrently", err).WithContext("http_status", gapiErr.Code)
	default:
		return NewAppError(ErrorTypeTransient, "Google API error", err).WithContext("http_status", gapiErr.Code)
	}
}

func isInvalidIDError(gapiErr *googleapi.Error) bool {
	messages := []string{gapiErr.Message}
	for _, item := range gapiErr.Errors {
		messages = append(messages, item.Message)
	}
	for _, msg := range messages {
		if strings.Contains(msg, "Invalid dataset ID") || strings.Contains(msg, "Invalid table ID") {
			return true
		}
	}
	return false
}

// classifyGRPCError handles errors from the Firestore client
func (ec *ErrorClassifier) classifyGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}

	switch st.Code() {
	case codes.NotFound:
		return NewNotFoundError("Document not found", err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return NewAppError(ErrorTypePermission, "Access denied", err)
	case codes.FailedPrecondition, codes.Aborted:
		return NewConflictError("Document was modified concurrently", err)
	case codes.DeadlineExceeded:
		return NewAppError(ErrorTypeTimeout, "Operation timed out", err)
	case codes.Canceled:
		return NewAppError(ErrorTypeInterruption, "Operation was canceled", err)
	case codes.InvalidArgument:
		return NewValidationError("Request rejected", err)
	default:
		return nil
	}
}

func (ec *ErrorClassifier) classifyContextError(err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewAppError(ErrorTypeTimeout, "Operation timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewAppError(ErrorTypeInterruption, "Operation was canceled", err)
	}
	return nil
}

// GetErrorType returns the error type of an error, classifying it when needed
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	return NewErrorClassifier().ClassifyError(err).Type
}

// IsNotFound reports whether err means the requested dataset, table or document does not exist
func IsNotFound(err error) bool {
	return err != nil && GetErrorType(err) == ErrorTypeNotFound
}

// IsConflict reports whether err is a concurrent-modification error
func IsConflict(err error) bool {
	return err != nil && GetErrorType(err) == ErrorTypeConflict
}

// WrapError wraps an existing error with additional context, keeping its classification
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	classified := NewErrorClassifier().ClassifyError(err)
	return NewAppError(classified.Type, message, err)
}
