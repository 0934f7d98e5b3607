// Package apperr holds the error taxonomy shared by services and handlers.
// Services wrap one of these sentinels; handlers map it to a status code.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
	ErrNotFound        = errors.New("not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrStore           = errors.New("store error")
	ErrUnknown         = errors.New("unknown error")
)

// New returns an error of the given kind carrying a client-facing message.
func New(kind error, msg string) error {
	return &detailed{kind: kind, msg: msg}
}

// Invalid wraps ErrInvalidRequest with a client-facing message.
func Invalid(format string, args ...any) error {
	return &detailed{kind: ErrInvalidRequest, msg: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the name of the missing record.
func NotFound(what string) error {
	return &detailed{kind: ErrNotFound, msg: what + " not found"}
}

// Store wraps a persistence or blob-store failure. The cause is kept for
// logging but never shown to the client.
func Store(op string, cause error) error {
	return &detailed{kind: ErrStore, msg: op, cause: cause}
}

type detailed struct {
	kind  error
	msg   string
	cause error
}

func (e *detailed) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *detailed) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Message returns the text safe to show a client.
func Message(err error) string {
	var d *detailed
	if errors.As(err, &d) {
		return d.msg
	}
	for _, sentinel := range []error{ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrInvalidRequest} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}

// Status maps an error onto the HTTP status of its sentinel.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
