package errors

import "net/http"

// ErrorCategory classifies errors by who can fix them.
type ErrorCategory string

const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures caused by the request itself.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates failures inside the server. Details of
	// internal errors are never sent to clients.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

const (
	// Transient errors
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Operation timed out
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Server is shutting down or overloaded

	// Permanent errors
	ErrCodeCustom           ErrorCode = "CUSTOM"             // Message meant for the client
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"          // No such route or resource
	ErrCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED" // Route exists, method does not
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"      // Malformed or invalid input
	ErrCodeUnsupported      ErrorCode = "UNSUPPORTED"        // Operation not supported
	ErrCodeCanceled         ErrorCode = "CANCELED"           // Client went away

	// Internal errors
	ErrCodeInternal      ErrorCode = "INTERNAL"      // Unexpected internal error
	ErrCodeIO            ErrorCode = "IO"            // Read/write failure
	ErrCodeSerialization ErrorCode = "SERIALIZATION" // Encoding a response failed
	ErrCodePanic         ErrorCode = "PANIC"         // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable:
		return CategoryTransient

	case ErrCodeCustom, ErrCodeNotFound, ErrCodeMethodNotAllowed, ErrCodeInvalidInput,
		ErrCodeUnsupported, ErrCodeCanceled:
		return CategoryPermanent

	default:
		return CategoryInternal
	}
}

// HTTPStatus returns the response status used for the code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeCustom, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	case ErrCodeCanceled:
		// nginx's "client closed request"
		return 499
	default:
		return http.StatusInternalServerError
	}
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:          "operation timed out",
	ErrCodeUnavailable:      "service temporarily unavailable",
	ErrCodeCustom:           "request failed",
	ErrCodeNotFound:         "resource not found",
	ErrCodeMethodNotAllowed: "method not allowed",
	ErrCodeInvalidInput:     "invalid input provided",
	ErrCodeUnsupported:      "operation not supported",
	ErrCodeCanceled:         "operation canceled",
	ErrCodeInternal:         "internal error",
	ErrCodeIO:               "i/o failure",
	ErrCodeSerialization:    "serialization failure",
	ErrCodePanic:            "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
