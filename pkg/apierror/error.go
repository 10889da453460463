package apierror

import (
	"encoding/json"
	"fmt"
)

// Status codes used on the wire. The numbering follows HTTP so that the
// meaning of a reply is obvious to anyone reading a transcript.
const (
	StatusOK            = 200
	StatusCreated       = 201
	StatusBadRequest    = 400
	StatusUnauthorized  = 401
	StatusForbidden     = 403
	StatusNotFound      = 404
	StatusNotAcceptable = 406
	StatusConflict      = 409
	StatusInternalError = 500
)

var statusText = map[int]string{
	StatusOK:            "OK",
	StatusCreated:       "Created",
	StatusBadRequest:    "Bad Request",
	StatusUnauthorized:  "Unauthorized",
	StatusForbidden:     "Forbidden",
	StatusNotFound:      "Not Found",
	StatusNotAcceptable: "Not Acceptable",
	StatusConflict:      "Conflict",
	StatusInternalError: "Internal Server Error",
}

// StatusText returns the reason phrase for a status code.
func StatusText(code int) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return fmt.Sprintf("Status %d", code)
}

// Error represents a domain failure that is reported to the caller as a
// status line instead of being propagated.
type Error struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, StatusText(e.StatusCode), e.Message)
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: StatusBadRequest,
		Message:    message,
	}
}

// BadRequestf creates a 400 Bad Request error with a formatted message.
func BadRequestf(format string, args ...any) *Error {
	return BadRequest(fmt.Sprintf(format, args...))
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "You have not logged in or your login has timed out"
	}
	return &Error{
		StatusCode: StatusUnauthorized,
		Message:    message,
	}
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message string) *Error {
	if message == "" {
		message = "Access denied"
	}
	return &Error{
		StatusCode: StatusForbidden,
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: StatusNotFound,
		Message:    message,
	}
}

// NotAcceptable creates a 406 Not Acceptable error.
func NotAcceptable(message string) *Error {
	return &Error{
		StatusCode: StatusNotAcceptable,
		Message:    message,
	}
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return &Error{
		StatusCode: StatusConflict,
		Message:    message,
	}
}

// InternalError creates a 500 error. Used only when the store itself fails.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: StatusInternalError,
		Message:    message,
	}
}

// ToJSON renders the error for the admin HTTP surface.
func (e *Error) ToJSON() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.StatusCode,
			"message": e.Message,
		},
	})
	return body
}
