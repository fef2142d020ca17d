package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindIntegrity
	KindUnauthorized
)

// Error is a business error carrying a user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newf(KindConflict, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

func Integrityf(format string, args ...any) error {
	return newf(KindIntegrity, format, args...)
}

func Unauthorizedf(format string, args ...any) error {
	return newf(KindUnauthorized, format, args...)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// HTTPStatus maps an error to the HTTP status code of its kind.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation, KindConflict, KindIntegrity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
