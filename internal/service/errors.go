package service

import (
	"errors"
	"fmt"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
)

// Code classifies every failure an action can report.
type Code string

const (
	CodeValidation      Code = "ValidationError"
	CodeForbidden       Code = "Forbidden"
	CodeConflict        Code = "Conflict"
	CodeNotFound        Code = "NotFound"
	CodeExpired         Code = "Expired"
	CodeMismatch        Code = "Mismatch"
	CodeLimitExceeded   Code = "LimitExceeded"
	CodeExternalService Code = "ExternalServiceError"
	CodeInternal        Code = "InternalError"
)

// Error is a typed, user-visible failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrConflict)
// holds for every conflict regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation      = &Error{Code: CodeValidation}
	ErrForbidden       = &Error{Code: CodeForbidden}
	ErrConflict        = &Error{Code: CodeConflict}
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrExpired         = &Error{Code: CodeExpired}
	ErrMismatch        = &Error{Code: CodeMismatch}
	ErrLimitExceeded   = &Error{Code: CodeLimitExceeded}
	ErrExternalService = &Error{Code: CodeExternalService}
	ErrInternal        = &Error{Code: CodeInternal}
)

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) error {
	return newError(CodeValidation, format, args...)
}

func forbidden(format string, args ...interface{}) error {
	return newError(CodeForbidden, format, args...)
}

func conflict(format string, args ...interface{}) error {
	return newError(CodeConflict, format, args...)
}

func notFound(format string, args ...interface{}) error {
	return newError(CodeNotFound, format, args...)
}

// internalMessage is the only text an unexpected failure ever exposes.
const internalMessage = "something went wrong, please try again later"

// AsError converts any error into a typed *Error. Store constraint failures
// become conflicts; everything unrecognised becomes an InternalError with no
// detail of the cause.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if repository.IsConstraintViolation(err) || repository.IsUniqueViolation(err) {
		return newError(CodeConflict, "the team changed while your request was processed, please try again")
	}
	return &Error{Code: CodeInternal, Message: internalMessage}
}

// CodeOf returns the code err would be reported with.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return AsError(err).Code
}
