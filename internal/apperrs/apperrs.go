// Package apperrs provides structured application errors with machine-readable
// codes and HTTP status mapping.
package apperrs

import (
	"fmt"
	"net/http"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

const (
	CodeInvalidCredential ErrorCode = "AUTH_INVALID_CREDENTIAL"
	CodeMissingFile       ErrorCode = "VALIDATION_MISSING_FILE"
	CodeEmptyFilename     ErrorCode = "VALIDATION_EMPTY_FILENAME"
	CodeLocalUnreachable  ErrorCode = "BACKEND_LOCAL_UNREACHABLE"
	CodeLocalEmpty        ErrorCode = "BACKEND_LOCAL_EMPTY"
	CodeCloudHTTPError    ErrorCode = "BACKEND_CLOUD_HTTP_ERROR"
	CodeCloudNetworkError ErrorCode = "BACKEND_CLOUD_NETWORK_ERROR"
	CodeCloudForbidden    ErrorCode = "POLICY_CLOUD_FORBIDDEN"
	CodeLedgerWriteFailed ErrorCode = "PERSISTENCE_LEDGER_WRITE_FAILED"
	CodeAuditWriteFailed  ErrorCode = "PERSISTENCE_AUDIT_WRITE_FAILED"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// HTTPStatus is the HTTP status code rendered for this error.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// --- Taxonomy constructors ---

// InvalidCredential signals a bearer token that matches no client policy.
func InvalidCredential() *AppError {
	return New(CodeInvalidCredential, "Invalid API Key", http.StatusUnauthorized)
}

// MissingFile signals a multipart request without an audio file part.
func MissingFile() *AppError {
	return New(CodeMissingFile, "No file provided", http.StatusBadRequest)
}

// EmptyFilename signals an audio file part with an empty filename.
func EmptyFilename() *AppError {
	return New(CodeEmptyFilename, "No selected file", http.StatusBadRequest)
}

// LocalUnreachable signals a failed call to the local transcription backend.
func LocalUnreachable(cause error) *AppError {
	return New(CodeLocalUnreachable, "local transcription backend unreachable", http.StatusInternalServerError).WithCause(cause)
}

// LocalEmpty signals a local backend call that produced no transcript.
func LocalEmpty() *AppError {
	return New(CodeLocalEmpty, "local transcription backend returned no text", http.StatusInternalServerError)
}

// CloudHTTPError signals a non-200 response from the cloud backend.
func CloudHTTPError(status int, body string) *AppError {
	return New(CodeCloudHTTPError,
		fmt.Sprintf("cloud transcription API error: status=%d body=%s", status, body),
		http.StatusInternalServerError)
}

// CloudNetworkError signals a transport failure talking to the cloud backend.
func CloudNetworkError(cause error) *AppError {
	return New(CodeCloudNetworkError, "cloud transcription API unreachable", http.StatusInternalServerError).WithCause(cause)
}

// CloudForbidden signals that the client policy disallows cloud fallback.
func CloudForbidden() *AppError {
	return New(CodeCloudForbidden, "Cloud API usage is forbidden for this client", http.StatusForbidden)
}

// TranscriptionFailed signals that every attempted backend failed.
func TranscriptionFailed() *AppError {
	return New(CodeCloudHTTPError, "Transcription failed", http.StatusInternalServerError)
}

// LedgerWriteFailed signals a usage ledger persistence failure.
func LedgerWriteFailed(cause error) *AppError {
	return New(CodeLedgerWriteFailed, "usage ledger write failed", http.StatusInternalServerError).WithCause(cause)
}

// AuditWriteFailed signals an audit log persistence failure.
func AuditWriteFailed(cause error) *AppError {
	return New(CodeAuditWriteFailed, "audit log write failed", http.StatusInternalServerError).WithCause(cause)
}
