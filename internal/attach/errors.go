package attach

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("not logged in")
)

// NotFoundError names the missing thing. Kind is reported to clients as
// "<Kind>NotFound".
type NotFoundError struct {
	Kind    string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(kind, format string, args ...any) error {
	return &NotFoundError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError for callers outside this package.
func NotFound(kind, format string, args ...any) error {
	return notFound(kind, format, args...)
}

type ValidationError struct {
	Field   string
	Message string
	// TooLong marks an upper bound violation, reported as 413.
	TooLong bool
}

func (e *ValidationError) Error() string {
	return e.Message
}
