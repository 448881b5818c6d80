package services

import "errors"

// Error kinds. Handlers map them to HTTP status codes; any other error is
// treated as internal.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error carries a caller-safe message alongside its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func invalidInput(message string) error {
	return &Error{Kind: ErrInvalidInput, Message: message}
}

func unauthorized(message string) error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func notFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}
