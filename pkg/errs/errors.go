package errs

import (
	"errors"
	"net/http"
)

// Kinds. Concrete errors wrap exactly one of these.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrNotAMember   = errors.New("not a member")
	ErrPersistence  = errors.New("persistence failure")
	ErrUnavailable  = errors.New("service unavailable")
)

// Error is a kinded error whose message is safe to show to the client
// that caused it.
type Error struct {
	Kind error
	Msg  string
}

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

// Visible reports whether the message of err may be reported back to the
// initiating connection. Stale-membership and storage errors stay server side.
func Visible(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnavailable)
}

// ClientMessage returns the text sent in an `error` event.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && Visible(err) {
		return e.Msg
	}
	return "internal error"
}

func ToHTTP(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotAMember):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
