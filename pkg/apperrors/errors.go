// Package apperrors defines the error taxonomy surfaced to API callers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindInvalidState
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// GenericMessage is what callers see for internal failures.
const GenericMessage = "something went wrong, please try again later"

type AppError struct {
	Kind    Kind   // Category driving the HTTP status
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError of the same kind, so errors.Is(err, apperrors.NotFound(""))
// style checks work without comparing messages.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, err error, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *AppError   { return New(KindValidation, message) }
func Auth(message string) *AppError         { return New(KindAuth, message) }
func Forbidden(message string) *AppError    { return New(KindForbidden, message) }
func NotFound(message string) *AppError     { return New(KindNotFound, message) }
func InvalidState(message string) *AppError { return New(KindInvalidState, message) }
func Conflict(message string) *AppError     { return New(KindConflict, message) }

func Internal(err error, message string) *AppError {
	return Wrap(KindInternal, err, message)
}

// KindOf reports the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidState:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show to the caller. Internal details
// never leave the process.
func PublicMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Kind == KindInternal {
		return GenericMessage
	}
	return appErr.Message
}
