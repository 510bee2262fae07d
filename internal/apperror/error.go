package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AppError carries a stable code, a value-free message and the HTTP status it maps to.
type AppError struct {
	Code       Code      `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Context    string    `json:"context,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (context: %s)", e.Code, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithTraceID sets the trace ID for distributed tracing
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// Response is the JSON error envelope returned by every HTTP surface.
type Response struct {
	Error ResponseBody `json:"error"`
}

type ResponseBody struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Context   string `json:"context,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// ToResponse builds the envelope. The cause is never included.
func (e *AppError) ToResponse() Response {
	return Response{Error: ResponseBody{
		Code:      e.Code,
		Message:   e.Message,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Context:   e.Context,
		TraceID:   e.TraceID,
	}}
}

// FromResponse rebuilds an AppError from an envelope received over HTTP.
// It reports false when body is not an envelope.
func FromResponse(statusCode int, body []byte) (*AppError, bool) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error.Code == "" {
		return nil, false
	}

	appErr := New(resp.Error.Code, WithContext(resp.Error.Context), WithStatusCode(statusCode))
	if resp.Error.Message != "" {
		appErr.Message = resp.Error.Message
	}
	if ts, err := time.Parse(time.RFC3339, resp.Error.Timestamp); err == nil {
		appErr.Timestamp = ts
	}
	appErr.TraceID = resp.Error.TraceID
	return appErr, true
}

// New creates a new AppError with the given code and options
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: defaultStatusCode(code),
		Timestamp:  time.Now(),
	}

	for _, opt := range opts {
		opt(err)
	}

	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

// WithMessage sets a custom message
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext adds context information. It must not carry request values.
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithStatusCode sets a custom HTTP status code
func WithStatusCode(statusCode int) Option {
	return func(e *AppError) {
		e.StatusCode = statusCode
	}
}

// WithCause wraps an underlying error
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// NotFound creates a not found error
func NotFound(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusNotFound))
}

// Validation creates a bad request error
func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusBadRequest))
}

// Unprocessable creates an error for a well-formed body that fails validation.
func Unprocessable(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusUnprocessableEntity))
}

// Conflict creates a conflict error
func Conflict(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusConflict))
}

// Internal creates an internal server error
func Internal(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusInternalServerError))
}

// External creates an external service error
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusServiceUnavailable))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

func defaultStatusCode(code Code) int {
	if status, ok := statusCodes[code]; ok {
		return status
	}

	switch {
	case strings.Contains(string(code), "NOT_FOUND"):
		return http.StatusNotFound
	case strings.Contains(string(code), "INVALID"):
		return http.StatusBadRequest
	case strings.Contains(string(code), "CONNECTION"),
		strings.Contains(string(code), "TIMEOUT"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
