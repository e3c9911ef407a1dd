package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// RejectionError is an expected refusal of a domain operation (a precondition did not hold).
// Rejections are declared once per package and compared by identity.
type RejectionError struct {
	message string
}

func NewRejectionError(msg string) error {
	return &RejectionError{message: msg}
}

func (r RejectionError) Error() string {
	return r.message
}

func IsRejection(err error) bool {
	_, ok := errors.Cause(err).(*RejectionError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
