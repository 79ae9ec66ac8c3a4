package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type represents the category of an error.
type Type string

const (
	// TypeNotFound indicates a province, template or file was not found.
	TypeNotFound Type = "not_found"
	// TypeValidation indicates invalid input data.
	TypeValidation Type = "validation"
	// TypeConfig indicates a misconfigured model, template or path.
	TypeConfig Type = "config"
	// TypeAuth indicates the remote API rejected our credentials.
	TypeAuth Type = "auth"
	// TypeExternal indicates a remote service failure.
	TypeExternal Type = "external"
	// TypeResourceExhausted indicates the remote model ran out of memory or quota.
	TypeResourceExhausted Type = "resource_exhausted"
	// TypeIO indicates a filesystem failure.
	TypeIO Type = "io"
	// TypeInternal indicates anything else.
	TypeInternal Type = "internal"
)

// Error is the base error type for the toolkit.
type Error struct {
	Type    Type
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFoundf creates a not found error with formatting.
func NotFoundf(format string, args ...any) error {
	return &Error{Type: TypeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validationf creates a validation error with formatting.
func Validationf(format string, args ...any) error {
	return &Error{Type: TypeValidation, Message: fmt.Sprintf(format, args...)}
}

// Configf creates a configuration error with formatting.
func Configf(format string, args ...any) error {
	return &Error{Type: TypeConfig, Message: fmt.Sprintf(format, args...)}
}

// Auth creates an authentication error.
func Auth(message string) error {
	return &Error{Type: TypeAuth, Message: message}
}

// Externalf creates an external service error with formatting.
func Externalf(format string, args ...any) error {
	return &Error{Type: TypeExternal, Message: fmt.Sprintf(format, args...)}
}

// ResourceExhausted creates a resource exhausted error.
func ResourceExhausted(message string) error {
	return &Error{Type: TypeResourceExhausted, Message: message}
}

// Wrap wraps err with the given type. A nil err returns nil.
func Wrap(t Type, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Message: message, Err: err}
}

// WrapExternal wraps an error as an external service error.
func WrapExternal(message string, err error) error {
	return Wrap(TypeExternal, message, err)
}

// WrapIO wraps an error as a filesystem error.
func WrapIO(message string, err error) error {
	return Wrap(TypeIO, message, err)
}

// GetType returns the type of the first Error in err's chain,
// or TypeInternal when there is none.
func GetType(err error) Type {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return TypeInternal
}

// Is reports whether err carries the given type.
func Is(err error, t Type) bool {
	return err != nil && GetType(err) == t
}

// HTTPStatus maps an error to the status code the web API responds with.
func HTTPStatus(err error) int {
	switch GetType(err) {
	case TypeNotFound:
		return http.StatusNotFound
	case TypeValidation:
		return http.StatusBadRequest
	case TypeAuth:
		return http.StatusUnauthorized
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
