package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppError(t *testing.T) {
	cause := errors.New("underlying error")
	appErr := NewAppError(ErrorTypeTransient, "write failed", cause)

	if appErr.Type != ErrorTypeTransient {
		t.Errorf("Expected type %v, got %v", ErrorTypeTransient, appErr.Type)
	}

	if appErr.Cause != cause {
		t.Errorf("Expected cause %v, got %v", cause, appErr.Cause)
	}

	expectedError := "transient: write failed (caused by: underlying error)"
	if appErr.Error() != expectedError {
		t.Errorf("Expected error string %v, got %v", expectedError, appErr.Error())
	}

	if !errors.Is(appErr, cause) {
		t.Error("Expected errors.Is to find the cause")
	}
}

func TestAppErrorWithContext(t *testing.T) {
	appErr := NewNotFoundError("table missing", nil)
	appErr.WithContext("dataset", "sales").WithContext("table", "orders")

	if appErr.Context["dataset"] != "sales" {
		t.Errorf("Expected context dataset=sales, got %v", appErr.Context["dataset"])
	}
	if appErr.Context["table"] != "orders" {
		t.Errorf("Expected context table=orders, got %v", appErr.Context["table"])
	}
}

func TestErrorClassifier_GoogleAPI(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		name         string
		err          *googleapi.Error
		expectedType ErrorType
	}{
		{
			name:         "not found",
			err:          &googleapi.Error{Code: http.StatusNotFound, Message: "Not found: Dataset p:d"},
			expectedType: ErrorTypeNotFound,
		},
		{
			name: "invalid dataset id",
			err: &googleapi.Error{
				Code:   http.StatusBadRequest,
				Errors: []googleapi.ErrorItem{{Reason: "invalid", Message: "Invalid dataset ID \"a-b\"."}},
			},
			expectedType: ErrorTypeNotFound,
		},
		{
			name:         "invalid table id",
			err:          &googleapi.Error{Code: http.StatusBadRequest, Message: "Invalid table ID \"x y\"."},
			expectedType: ErrorTypeNotFound,
		},
		{
			name:         "other bad request",
			err:          &googleapi.Error{Code: http.StatusBadRequest, Message: "Field too long"},
			expectedType: ErrorTypeValidation,
		},
		{
			name:         "forbidden",
			err:          &googleapi.Error{Code: http.StatusForbidden},
			expectedType: ErrorTypePermission,
		},
		{
			name:         "precondition failed",
			err:          &googleapi.Error{Code: http.StatusPreconditionFailed},
			expectedType: ErrorTypeConflict,
		},
		{
			name:         "server error",
			err:          &googleapi.Error{Code: http.StatusServiceUnavailable},
			expectedType: ErrorTypeTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := classifier.ClassifyError(fmt.Errorf("wrapped: %w", tt.err))
			if appErr.Type != tt.expectedType {
				t.Errorf("Expected type %v, got %v", tt.expectedType, appErr.Type)
			}
		})
	}
}

func TestErrorClassifier_GRPC(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		code         codes.Code
		expectedType ErrorType
	}{
		{codes.NotFound, ErrorTypeNotFound},
		{codes.PermissionDenied, ErrorTypePermission},
		{codes.Aborted, ErrorTypeConflict},
		{codes.DeadlineExceeded, ErrorTypeTimeout},
		{codes.Unavailable, ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			appErr := classifier.ClassifyError(status.Error(tt.code, "boom"))
			if appErr.Type != tt.expectedType {
				t.Errorf("Expected type %v, got %v", tt.expectedType, appErr.Type)
			}
		})
	}
}

func TestErrorClassifier_Context(t *testing.T) {
	classifier := NewErrorClassifier()

	if got := classifier.ClassifyError(context.DeadlineExceeded).Type; got != ErrorTypeTimeout {
		t.Errorf("Expected timeout, got %v", got)
	}
	if got := classifier.ClassifyError(context.Canceled).Type; got != ErrorTypeInterruption {
		t.Errorf("Expected interruption, got %v", got)
	}
	if got := classifier.ClassifyError(errors.New("connection reset")).Type; got != ErrorTypeTransient {
		t.Errorf("Expected transient, got %v", got)
	}
	if classifier.ClassifyError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NewNotFoundError("missing", nil)) {
		t.Error("Expected NotFound AppError to be not found")
	}
	if !IsNotFound(fmt.Errorf("get: %w", &googleapi.Error{Code: http.StatusNotFound})) {
		t.Error("Expected wrapped 404 to be not found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Error("Expected plain error not to be not found")
	}
	if IsNotFound(nil) {
		t.Error("Expected nil not to be not found")
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "msg") != nil {
		t.Error("Expected nil when wrapping nil")
	}

	wrapped := WrapError(status.Error(codes.NotFound, "gone"), "failed to read document")
	if !IsNotFound(wrapped) {
		t.Error("Expected wrapped error to keep its classification")
	}
	if !IsConflict(WrapError(NewConflictError("etag", nil), "update")) {
		t.Error("Expected conflict classification to survive wrapping")
	}
}
