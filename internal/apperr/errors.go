// Package apperr holds the error taxonomy shared by every workflow.
// Callers branch on the kind with errors.Is; the HTTP layer maps kinds to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Base kinds.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
)

// StudentRef identifies a student in conflict reports.
type StudentRef struct {
	StudentNumber string `json:"student_number"`
	Name          string `json:"name"`
}

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind    error  // one of the base kinds
	Op      string // e.g. "application.Review"
	Message string

	// Conflicts lists the students that blocked an approval.
	Conflicts []StudentRef
	// Rows carries per-row soft errors reported alongside a hard failure.
	Rows []string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Conflicts) > 0 {
		parts := make([]string, len(e.Conflicts))
		for i, c := range e.Conflicts {
			parts[i] = c.StudentNumber + " " + c.Name
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func newErr(kind error, op, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Message: msg}
}

func Validation(op, format string, args ...any) *Error {
	return newErr(ErrValidation, op, format, args...)
}

func Forbidden(op, format string, args ...any) *Error {
	return newErr(ErrAuthorization, op, format, args...)
}

func NotFound(op, format string, args ...any) *Error {
	return newErr(ErrNotFound, op, format, args...)
}

func Conflict(op, format string, args ...any) *Error {
	return newErr(ErrConflict, op, format, args...)
}

// Wrap attaches an underlying cause to a classified error.
func Wrap(kind error, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

func IsValidation(err error) bool    { return errors.Is(err, ErrValidation) }
func IsAuthorization(err error) bool { return errors.Is(err, ErrAuthorization) }
func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool      { return errors.Is(err, ErrConflict) }

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps an error to a response status. Unclassified errors are 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsAuthorization(err):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
